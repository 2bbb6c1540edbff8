package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/tensorstream/pkg/filter"
)

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List the registered filter backends",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range filter.Backends() {
			fmt.Println(name)
		}
		return nil
	},
}
