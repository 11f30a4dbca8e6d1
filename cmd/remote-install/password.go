package main

import (
	"fmt"

	"github.com/fgeck/remote-install/internal/services/credentials"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	passwordHost   string
	passwordLength int
)

var passwordCmd = &cobra.Command{
	Use:   "password",
	Short: "Print a safe MySQL password",
	Long: `Print a freshly generated password from the unambiguous alphabet.
With --host, print the password stored for that server instead, if any.
Nothing is written to disk.`,
	RunE: showPassword,
}

func init() {
	passwordCmd.Flags().StringVar(&passwordHost, "host", "", "print the stored password for this server")
	passwordCmd.Flags().IntVar(&passwordLength, "length", credentials.DefaultLength, "length of a generated password")
}

func showPassword(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to load config")
		return err
	}

	svc := credentials.New(log.Logger, cfg.Credentials.Dir)

	if passwordHost == "" {
		password, err := svc.Generate(passwordLength)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), password)
		return nil
	}

	password, found, err := svc.Resolve(passwordHost)
	if err != nil {
		return err
	}
	if !found {
		path, _ := svc.Path(passwordHost)
		return fmt.Errorf("no stored password for %s at %s", passwordHost, path)
	}
	fmt.Fprintln(cmd.OutOrStdout(), password)
	return nil
}
