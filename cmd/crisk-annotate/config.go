package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/rohankatakam/crisk-annotate/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage crisk-annotate configuration",
	Long:  `View and initialize crisk-annotate configuration settings.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file",
	Long: `Write a configuration file with the current effective settings.

Examples:
  # Create .crisk-annotate/config.yaml in the current directory
  crisk-annotate config init

  # Use a redis cache and keep its password in the OS keychain
  crisk-annotate config init --cache redis --redis-keychain`,
	RunE: runConfigInit,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().String("path", filepath.Join(".crisk-annotate", "config.yaml"), "Where to write the config file")
	configInitCmd.Flags().String("cache", "", "Cache type: memory, bolt, redis")
	configInitCmd.Flags().Bool("redis-keychain", false, "Prompt for the redis password and store it in the OS keychain")
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing config file")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	shown := *cfg
	if shown.Cache.Redis.Password != "" {
		shown.Cache.Redis.Password = maskSecret(shown.Cache.Redis.Password)
	}

	data, err := yaml.Marshal(&shown)
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("path")
	cacheType, _ := cmd.Flags().GetString("cache")
	redisKeychain, _ := cmd.Flags().GetBool("redis-keychain")
	force, _ := cmd.Flags().GetBool("force")

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	out := *cfg
	if cacheType != "" {
		out.Cache.Type = cacheType
	}

	if redisKeychain {
		km := config.NewKeyringManager()
		if !km.IsAvailable() {
			return fmt.Errorf("OS keychain is not available on this system")
		}
		password, err := readPassword("Redis password: ")
		if err != nil {
			return err
		}
		if err := km.SaveRedisPassword(password); err != nil {
			return err
		}
		out.Cache.Redis.UseKeychain = true
		fmt.Println("✅ Redis password stored in OS keychain")
	}

	if err := out.MustValidate(); err != nil {
		return err
	}
	if err := out.Save(path); err != nil {
		return err
	}

	fmt.Printf("✅ Configuration written to %s\n", path)
	return nil
}

// readPassword reads a secret without echo when stdin is a terminal
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	if term.IsTerminal(int(syscall.Stdin)) {
		bytes, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return strings.TrimSpace(string(bytes)), nil
	}

	var password string
	if _, err := fmt.Scanln(&password); err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(password), nil
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
