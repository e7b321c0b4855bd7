package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/agora-dev/agora"
)

// Version information (set via ldflags)
var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "agora",
		Short: "Multi-agent deliberation service",
		Long:  "Agora runs moderated multi-agent deliberation rounds over HTTP and websockets.",
	}

	var configFile string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the deliberation server",
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Printf("Starting agora v%s", Version)
			if configFile != "" {
				log.Printf("Config: %s", configFile)
			}
			return agora.Run(configFile)
		},
	}
	serveCmd.Flags().StringVarP(&configFile, "config", "c", os.Getenv("CONFIG_FILE"), "Path to YAML configuration file")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("agora v%s\n", Version)
		},
	}

	rootCmd.AddCommand(serveCmd, versionCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
