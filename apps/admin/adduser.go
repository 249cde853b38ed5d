package main

import (
	"github.com/copalsoft/copalschool/core"
	"github.com/copalsoft/copalschool/core/user"
)

// addUser updates or creates an admin user.User
func (cli *commandLine) addUser(uname, email, pwd string) error {
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUserByUsernameOrEmail(uname)
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		usr = user.User{
			Username: uname,
			Email:    email,
		}
	}
	usr.Role = user.RoleAdmin
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	usr.Touch(core.Now())

	if usr.ID > 0 {
		_, err = cli.usrRepo.UpdateUser(usr)
	} else {
		_, err = cli.usrRepo.CreateUser(usr)
	}
	return err
}
