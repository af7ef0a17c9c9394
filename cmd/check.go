package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validates the network config and prints it with defaults filled in",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			panic(err)
		}

		cfgYaml, err := yaml.Marshal(cfg)
		if err != nil {
			panic(err)
		}

		fmt.Printf("Config is valid: %d nodes (%s), %d links, %d events\n",
			len(cfg.Nodes), strings.Join(nodeNames(cfg), ", "), len(cfg.Links), len(cfg.Events))
		fmt.Println(string(cfgYaml))
	},
	GroupID: "cfg",
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
