// SPDX-License-Identifier: MPL-2.0

package main

import "github.com/brewkit-dev/brewkit/cmd/brewkit"

func main() {
	cmd.Execute()
}
