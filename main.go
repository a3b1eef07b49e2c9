// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package main is the entry point of the loxtr console.
package main

import (
	"loxtr/console/cmd"
)

func main() {
	cmd.Execute()
}
