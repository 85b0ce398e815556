// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/tradewatch/tradewatch/cmd/tradewatch"

func main() {
	cmd.Execute()
}
