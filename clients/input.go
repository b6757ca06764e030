// Copyright 2025 The Clientbook Authors
// SPDX-License-Identifier: Apache-2.0

package clients

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bufalari/clientbook/utils/textutils"
	"github.com/go-playground/validator/v10"
)

// ClientInput is the payload accepted by Create and Update.
type ClientInput struct {
	Name                string         `json:"name" validate:"required,min=2,max=100"`
	City                string         `json:"city" validate:"required"`
	Country             string         `json:"country" validate:"required"`
	Province            string         `json:"province" validate:"required"`
	PostalCode          string         `json:"postalCode" validate:"required"`
	Address             string         `json:"address" validate:"required"`
	DialCode1           string         `json:"ddI1" validate:"required"`
	PhoneNumber1        string         `json:"phoneNumber1" validate:"required"`
	DialCode2           string         `json:"ddI2,omitempty"`
	PhoneNumber2        string         `json:"phoneNumber2,omitempty"`
	Email               string         `json:"email" validate:"required,email"`
	SinNumber           string         `json:"sinNumber" validate:"required"`
	Notes               string         `json:"notes,omitempty"`
	AlternativeContacts []ContactInput `json:"alternativeContacts" validate:"required,min=1,dive"`
}

// ContactInput is an alternative contact inside a ClientInput. A zero ID
// means the contact is new.
type ContactInput struct {
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"name" validate:"required"`
	DialCode    string `json:"ddI" validate:"required"`
	PhoneNumber string `json:"phoneNumber" validate:"required"`
	Email       string `json:"email,omitempty" validate:"omitempty,email"`
	Notes       string `json:"notes,omitempty"`
}

// Normalize trims every text field and composes it to NFC.
func (in *ClientInput) Normalize() {
	for _, f := range []*string{
		&in.Name, &in.City, &in.Country, &in.Province, &in.PostalCode, &in.Address,
		&in.DialCode1, &in.PhoneNumber1, &in.DialCode2, &in.PhoneNumber2,
		&in.Email, &in.SinNumber, &in.Notes,
	} {
		*f = textutils.Clean(*f)
	}

	for i := range in.AlternativeContacts {
		c := &in.AlternativeContacts[i]
		for _, f := range []*string{&c.Name, &c.DialCode, &c.PhoneNumber, &c.Email, &c.Notes} {
			*f = textutils.Clean(*f)
		}
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

type fieldRule struct {
	field string
	tag   string
}

var clientMessages = map[fieldRule]string{
	{"Name", "required"}:                "Client name cannot be null",
	{"Name", "min"}:                     "Client name must be between 2 and 100 characters",
	{"Name", "max"}:                     "Client name must be between 2 and 100 characters",
	{"City", "required"}:                "City is mandatory",
	{"Country", "required"}:             "Country is mandatory",
	{"Province", "required"}:            "Province is mandatory",
	{"PostalCode", "required"}:          "Postal code is mandatory",
	{"Address", "required"}:             "Address is mandatory",
	{"DialCode1", "required"}:           "ddI is mandatory",
	{"PhoneNumber1", "required"}:        "Phone number 1 is mandatory",
	{"Email", "required"}:               "Email is mandatory",
	{"Email", "email"}:                  "Invalid email format",
	{"SinNumber", "required"}:           "SIN number is mandatory",
	{"AlternativeContacts", "required"}: "At least one alternative contact is required",
	{"AlternativeContacts", "min"}:      "At least one alternative contact is required",
}

var contactMessages = map[fieldRule]string{
	{"Name", "required"}:        "Name is mandatory",
	{"DialCode", "required"}:    "DDI is mandatory",
	{"PhoneNumber", "required"}: "Phone number is mandatory",
	{"Email", "email"}:          "Invalid email format",
}

// Validate returns one message per violated rule, in field order. An empty
// result means the input is acceptable.
func Validate(in *ClientInput) []string {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return []string{err.Error()}
	}

	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, errorMessage(fe))
	}

	return msgs
}

func errorMessage(fe validator.FieldError) string {
	messages := clientMessages
	if strings.Contains(fe.StructNamespace(), ".AlternativeContacts[") {
		messages = contactMessages
	}

	if msg, ok := messages[fieldRule{fe.StructField(), fe.Tag()}]; ok {
		return msg
	}

	return fmt.Sprintf("%s is invalid", fe.Field())
}
