// Copyright 2025 The Clientbook Authors
// SPDX-License-Identifier: Apache-2.0

package clients

// NewContacts builds the contacts of a client being created. Identifiers in
// the input are ignored.
func NewContacts(clientID int64, incoming []ContactInput) []*AlternativeContact {
	contacts := make([]*AlternativeContact, 0, len(incoming))
	for _, in := range incoming {
		contacts = append(contacts, &AlternativeContact{
			ClientID:    clientID,
			Name:        in.Name,
			DialCode:    in.DialCode,
			PhoneNumber: in.PhoneNumber,
			Email:       in.Email,
			Notes:       in.Notes,
		})
	}

	return contacts
}

// ReconcileContacts merges incoming into existing by ID. Matching contacts
// are overwritten in place; anything else (zero or unknown ID) is appended as
// a new contact owned by clientID. Existing contacts absent from incoming
// are kept.
func ReconcileContacts(existing []*AlternativeContact, incoming []ContactInput, clientID int64) []*AlternativeContact {
	byID := make(map[int64]*AlternativeContact, len(existing))
	for _, c := range existing {
		if c.ID != 0 {
			byID[c.ID] = c
		}
	}

	result := make([]*AlternativeContact, len(existing), len(existing)+len(incoming))
	copy(result, existing)

	for _, in := range incoming {
		if c, ok := byID[in.ID]; ok && in.ID != 0 {
			c.Name = in.Name
			c.DialCode = in.DialCode
			c.PhoneNumber = in.PhoneNumber
			c.Email = in.Email
			c.Notes = in.Notes

			continue
		}

		result = append(result, &AlternativeContact{
			ClientID:    clientID,
			Name:        in.Name,
			DialCode:    in.DialCode,
			PhoneNumber: in.PhoneNumber,
			Email:       in.Email,
			Notes:       in.Notes,
		})
	}

	return result
}
