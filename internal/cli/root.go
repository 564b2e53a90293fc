package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"messaging-service/internal/config"
)

// RootCmd builds the command tree. Running the root command starts the server.
func RootCmd() *cobra.Command {
	v := config.New()
	var configFile string

	rootCmd := &cobra.Command{
		Use:          "messaging-service",
		Short:        "Direct messaging API",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "optional config file merged under the environment")
	rootCmd.PersistentFlags().String("store", "", "store driver: postgres or mongo")
	_ = v.BindPFlag("STORE_DRIVER", rootCmd.PersistentFlags().Lookup("store"))

	load := func() (config.Config, error) {
		return config.Load(v, configFile)
	}

	serveCmd := ServeCmd(v, load)
	rootCmd.RunE = serveCmd.RunE
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(MigrateCmd(load))
	return rootCmd
}

type loader func() (config.Config, error)

func bindFlag(v *viper.Viper, cmd *cobra.Command, key, flag string) {
	_ = v.BindPFlag(key, cmd.Flags().Lookup(flag))
}
