// Copyright 2025 The Clientbook Authors
// SPDX-License-Identifier: Apache-2.0

package clients

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func validInput() ClientInput {
	return ClientInput{
		Name:         "Jane Doe",
		City:         "Toronto",
		Country:      "Canada",
		Province:     "ON",
		PostalCode:   "M5H 2N2",
		Address:      "100 Queen St W",
		DialCode1:    "+1",
		PhoneNumber1: "4165550100",
		Email:        "jane@example.com",
		SinNumber:    "046454286",
		AlternativeContacts: []ContactInput{
			{Name: "John Doe", DialCode: "+1", PhoneNumber: "4165550101"},
		},
	}
}

func TestValidateAcceptsValidInput(t *testing.T) {
	in := validInput()
	assert.Empty(t, Validate(&in))
}

func TestValidateMessages(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ClientInput)
		want   []string
	}{
		{
			name:   "missing name",
			mutate: func(in *ClientInput) { in.Name = "" },
			want:   []string{"Client name cannot be null"},
		},
		{
			name:   "short name",
			mutate: func(in *ClientInput) { in.Name = "J" },
			want:   []string{"Client name must be between 2 and 100 characters"},
		},
		{
			name:   "long name",
			mutate: func(in *ClientInput) { in.Name = strings.Repeat("x", 101) },
			want:   []string{"Client name must be between 2 and 100 characters"},
		},
		{
			name:   "multibyte name counts characters",
			mutate: func(in *ClientInput) { in.Name = "Zoë" },
			want:   nil,
		},
		{
			name: "address parts",
			mutate: func(in *ClientInput) {
				in.City, in.Country, in.Province, in.PostalCode, in.Address = "", "", "", "", ""
			},
			want: []string{
				"City is mandatory",
				"Country is mandatory",
				"Province is mandatory",
				"Postal code is mandatory",
				"Address is mandatory",
			},
		},
		{
			name:   "primary phone",
			mutate: func(in *ClientInput) { in.DialCode1, in.PhoneNumber1 = "", "" },
			want:   []string{"ddI is mandatory", "Phone number 1 is mandatory"},
		},
		{
			name:   "missing email",
			mutate: func(in *ClientInput) { in.Email = "" },
			want:   []string{"Email is mandatory"},
		},
		{
			name:   "bad email",
			mutate: func(in *ClientInput) { in.Email = "not-an-email" },
			want:   []string{"Invalid email format"},
		},
		{
			name:   "missing SIN",
			mutate: func(in *ClientInput) { in.SinNumber = "" },
			want:   []string{"SIN number is mandatory"},
		},
		{
			name:   "nil contacts",
			mutate: func(in *ClientInput) { in.AlternativeContacts = nil },
			want:   []string{"At least one alternative contact is required"},
		},
		{
			name:   "empty contacts",
			mutate: func(in *ClientInput) { in.AlternativeContacts = []ContactInput{} },
			want:   []string{"At least one alternative contact is required"},
		},
		{
			name: "contact fields",
			mutate: func(in *ClientInput) {
				in.AlternativeContacts = []ContactInput{{Email: "nope"}}
			},
			want: []string{
				"Name is mandatory",
				"DDI is mandatory",
				"Phone number is mandatory",
				"Invalid email format",
			},
		},
		{
			name: "optional fields may be empty",
			mutate: func(in *ClientInput) {
				in.DialCode2, in.PhoneNumber2, in.Notes = "", "", ""
				in.AlternativeContacts[0].Email = ""
			},
			want: nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)

			got := Validate(&in)
			if tc.want == nil {
				assert.Empty(t, got)
			} else {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	in := validInput()
	in.Name = "  Jane   "
	in.City = "Montréal"
	in.AlternativeContacts[0].Name = "\tJohn "

	in.Normalize()

	assert.Equal(t, "Jane", in.Name)
	assert.Equal(t, "Montréal", in.City)
	assert.Equal(t, "John", in.AlternativeContacts[0].Name)
}

func TestNormalizeMakesBlankFieldsFail(t *testing.T) {
	in := validInput()
	in.City = "   "
	in.Normalize()

	assert.Equal(t, []string{"City is mandatory"}, Validate(&in))
}
