// Command affentanz plays back recorded desktop workflows.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pepperonas/Affentanz/internal/cli"
)

func main() {
	if err := cli.Execute(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
