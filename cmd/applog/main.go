package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:           "applog",
	Short:         "Application logging toolkit",
	Long:          `Write rotating application logs, watch warning and error alerts, and inspect log folders`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "applog version %s\n", version)
	},
}

func init() {
	// demo 命令的标志
	demoCmd.Flags().StringArrayP("config", "c", nil, "Config file, may be repeated (later files override earlier ones)")
	demoCmd.Flags().IntP("count", "n", 100, "Number of log lines to write")
	demoCmd.Flags().Duration("interval", 0, "Pause between lines")

	// serve 命令的标志
	serveCmd.Flags().StringArrayP("config", "c", nil, "Config file, may be repeated (later files override earlier ones)")

	// folder 命令的标志
	folderCmd.Flags().StringP("app", "a", "", "Application name")
	folderCmd.Flags().StringP("group", "g", "", "Application group shared with other programs")
	_ = folderCmd.MarkFlagRequired("app")

	// files / tail 命令的标志
	filesCmd.Flags().String("addr", "127.0.0.1:9090", "Viewer address")
	tailCmd.Flags().String("addr", "127.0.0.1:9090", "Viewer address")
	tailCmd.Flags().IntP("lines", "n", 0, "Number of lines (default: viewer setting)")

	// config 命令的标志
	configCmd.Flags().StringArrayP("config", "c", nil, "Config file, may be repeated (later files override earlier ones)")
	configCmd.Flags().StringP("format", "f", "yaml", "Output format: yaml, json or toml")

	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(folderCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(tailCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
