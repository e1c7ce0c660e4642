// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/odbcprov/odbcprov/cmd/odbcprov"

func main() {
	cmd.Execute()
}
