// Package cmd contains the CLI setup and commands exposed to the user
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gregriff/huddle/cmd/room"
	"github.com/gregriff/huddle/configs"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var ConfigFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:           "huddle",
	Short:         "Client for room-based party games",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// deferring this allows user to override config path with cli option
	cobra.OnInitialize(func() {
		if err := configs.InitConfig(ConfigFile); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		configs.SetupLogging(os.Stderr, viper.GetString("log.level"), viper.GetBool("debug"))
		log.Debug().Str("file", ConfigFile).Msg("using config file")
	})

	defaultConfigFilePath := filepath.Join(configs.GetConfigDir(), "huddle.toml")
	rootCmd.PersistentFlags().StringVar(&ConfigFile, "config", defaultConfigFilePath, "config file")

	rootCmd.PersistentFlags().String("server", "", "Game server API origin, e.g. http://localhost:8000/api")
	rootCmd.PersistentFlags().Bool("debug", false, "Print debugging information")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")

	// expose to application via viper
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("server.origin", rootCmd.PersistentFlags().Lookup("server"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(room.RoomCmd)
}
