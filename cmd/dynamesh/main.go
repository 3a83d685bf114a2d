// Command dynamesh converts building element geometry into meshes.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/logant/DynamoExperiments/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
