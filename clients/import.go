// Copyright 2025 The Clientbook Authors
// SPDX-License-Identifier: Apache-2.0

package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// ImportResult reports the outcome of one imported record.
type ImportResult struct {
	Index   int
	Client  *ClientResponse
	Err     error
	Skipped bool // the context was cancelled before the record was tried
}

// ImportSummary counts the outcomes of an import.
type ImportSummary struct {
	Created int
	Failed  int
	Skipped int
}

// DecodeImport reads a JSON array of client inputs.
func DecodeImport(r io.Reader) ([]ClientInput, error) {
	var inputs []ClientInput
	if err := json.NewDecoder(r).Decode(&inputs); err != nil {
		return nil, fmt.Errorf("decoding import file: %w", err)
	}

	return inputs, nil
}

// Import creates each input in order, one geocoding call per record. A
// failing record does not stop the import; progress is called after every
// record when non nil.
func (m *Manager) Import(ctx context.Context, inputs []ClientInput, progress func(ImportResult)) ImportSummary {
	var summary ImportSummary

	for i, in := range inputs {
		res := ImportResult{Index: i}

		if err := ctx.Err(); err != nil {
			res.Err = err
			res.Skipped = true
			summary.Skipped++
		} else if res.Client, res.Err = m.Create(ctx, in); res.Err != nil {
			summary.Failed++
		} else {
			summary.Created++
		}

		if progress != nil {
			progress(res)
		}
	}

	return summary
}
