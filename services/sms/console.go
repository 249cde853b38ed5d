package smssvc

import (
	"log"
	"sync"

	"github.com/copalsoft/copalschool/core/notification"
)

// SentSMS collects what the console sender "delivered"; tests read it back.
var (
	SentSMS = make(map[string][]string)
	mu      sync.Mutex
)

func ClearSentSMS() {
	mu.Lock()
	SentSMS = make(map[string][]string)
	mu.Unlock()
}

// consoleSender logs text messages instead of handing them to a gateway.
// A real SMS provider slots in behind notification.SMSSender when one is
// contracted.
type consoleSender struct {
	disableOutput bool
}

var _ notification.SMSSender = (*consoleSender)(nil)

func NewConsoleSender(disableOutput bool) *consoleSender {
	return &consoleSender{disableOutput: disableOutput}
}

func (s consoleSender) SendSMS(phone, body string) error {
	mu.Lock()
	SentSMS[phone] = append(SentSMS[phone], body)
	mu.Unlock()

	if !s.disableOutput {
		log.Printf("SMS to %s: %s", phone, body)
	}
	return nil
}
