package main

import (
	"github.com/copalsoft/copalschool/core"
)

func (cli *commandLine) resetPassword(uname, pwd string) error {
	usr, err := cli.usrRepo.GetUserByUsernameOrEmail(core.CleanString(uname, true /* lower */))
	if err != nil {
		return err
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	usr.Touch(core.Now())
	_, err = cli.usrRepo.UpdateUser(usr)
	return err
}
