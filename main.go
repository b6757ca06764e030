// Copyright 2025 The Clientbook Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/bufalari/clientbook/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
