package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/usedamru/sql2nosql/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file interactively",
	Long:  `Walk through prompts to create a configuration file at ~/.sql2nosql/sql2nosql.yaml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reader := bufio.NewReader(os.Stdin)

		fmt.Println("sql2nosql Configuration Setup")
		fmt.Println("=============================")
		fmt.Println()

		fmt.Println("Source PostgreSQL")
		fmt.Println("-----------------")
		host := prompt(reader, "Host", "localhost")
		portStr := prompt(reader, "Port", "5432")
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid port: %s", portStr)
		}
		database := prompt(reader, "Database name", "")
		schema := prompt(reader, "Schema", "public")
		username := prompt(reader, "Username", "")
		password := prompt(reader, "Password (or ${ENV:NAME})", "")
		fmt.Println()

		fmt.Println("Target MongoDB")
		fmt.Println("--------------")
		connStr := prompt(reader, "Connection string", "mongodb://localhost:27017")
		targetDB := prompt(reader, "Database name", database)
		fmt.Println()

		cfg := &config.Config{
			Version: config.CurrentVersion,
			Source: config.SourceConfig{
				Host:     host,
				Port:     port,
				Database: database,
				Schema:   schema,
				Username: username,
				Password: password,
			},
			Target: config.TargetConfig{
				ConnectionString: connStr,
				Database:         targetDB,
			},
		}

		cfgPath := config.ExpandHome(config.DefaultPath)
		if cfgFile != "" {
			cfgPath = cfgFile
		}
		if err := cfg.Save(cfgPath); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		fmt.Printf("Configuration written to %s\n", cfgPath)
		return nil
	},
}

func prompt(reader *bufio.Reader, label, def string) string {
	if def != "" {
		fmt.Printf("%s [%s]: ", label, def)
	} else {
		fmt.Printf("%s: ", label)
	}
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return def
	}
	return line
}

func init() {
	rootCmd.AddCommand(initCmd)
}
