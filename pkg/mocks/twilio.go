package mocks

import (
	"net/url"

	"github.com/sfreiberg/gotwilio"
	"github.com/stretchr/testify/mock"
)

// TwilioClientMock is a mock for Twilio
type TwilioClientMock struct {
	mock.Mock
}

// SendWhatsApp mocks sending a Twilio WhatsApp message
func (m *TwilioClientMock) SendWhatsApp(from, to, body, statusCallback, applicationSid string) (*gotwilio.SmsResponse, *gotwilio.Exception, error) {
	args := m.Called(from, to, body, statusCallback, applicationSid)
	response, _ := args.Get(0).(*gotwilio.SmsResponse)
	exception, _ := args.Get(1).(*gotwilio.Exception)
	return response, exception, args.Error(2)
}

// GenerateSignature mocks Twilio webhook signature generation
func (m *TwilioClientMock) GenerateSignature(url string, values url.Values) ([]byte, error) {
	args := m.Called(url, values)
	signature, _ := args.Get(0).([]byte)
	return signature, args.Error(1)
}
