// Command lightstore is the CLI surface of §6: create and list
// Ed25519-keyed remotes, and launch the daemon that serves them.
//
// Grounded on the teacher's cobra root commands
// (cmd/synnergy/main.go, cmd/cli/wallet.go, cmd/cli/network.go): a
// PersistentPreRunE that loads .env and the configured log level, plain
// RunE handlers that write to cmd.OutOrStdout(), and os.Exit(1) on the
// one top-level error from Execute.
package main

import (
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"lightstore/internal/bootstrap"
	"lightstore/internal/config"
	"lightstore/internal/daemon"
	"lightstore/internal/keystore"
	"lightstore/internal/xoraddr"
)

func rootInit(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load()
	cfg, err := config.Load(os.Getenv("LIGHTSTORE_ENV"))
	if err != nil {
		return err
	}
	lvl, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	logrus.SetLevel(lvl)
	return nil
}

func handleCreate(cmd *cobra.Command, _ []string) error {
	remote, _ := cmd.Flags().GetString("remote")

	store, err := keystore.Open(viper.GetString("keys.repo_path"))
	if err != nil {
		return err
	}
	key, err := store.Create()
	if err != nil {
		return err
	}
	defer key.Close()

	url := key.Public().String()
	if remote == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "created remote %s\n", url)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "added remote %s %s\n", remote, url)
	}
	return nil
}

func handleList(cmd *cobra.Command, _ []string) error {
	store, err := keystore.Open(viper.GetString("keys.repo_path"))
	if err != nil {
		return err
	}
	names, err := store.List()
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintf(cmd.OutOrStdout(), "lsd://%s/\n", name)
	}
	return nil
}

func handleDaemon(cmd *cobra.Command, _ []string) error {
	bindAddr := viper.GetString("daemon.bind_addr")

	seeds := viper.GetStringSlice("daemon.seeds")
	if seedsFile, _ := cmd.Flags().GetString("seeds-file"); seedsFile != "" {
		fileSeeds, err := config.LoadSeedFile(seedsFile)
		if err != nil {
			return err
		}
		seeds = fileSeeds
	}
	fmt.Fprintf(cmd.OutOrStdout(), "bootstrap seeds: %v\n", seeds)

	store, err := keystore.Open(viper.GetString("keys.repo_path"))
	if err != nil {
		return err
	}
	names, err := store.List()
	if err != nil {
		return err
	}

	var nodeID xoraddr.XorAddr
	if len(names) > 0 {
		key, err := store.Load(names[0])
		if err != nil {
			return err
		}
		defer key.Close()
		nodeID = key.Public().ToXorAddr()
	}

	d, addr, err := daemon.Start(bindAddr, nodeID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Daemon running at %s\n", addr)

	if len(seeds) > 0 {
		endpoints, err := bootstrap.Lookup(seeds, rand.New(rand.NewSource(time.Now().UnixNano())))
		if err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "bootstrap lookup failed: %v\n", err)
		}
		for _, ep := range endpoints {
			<-d.PublishDownloadFee(ep.Addr, 0)
		}
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	return d.Close()
}

func main() {
	root := &cobra.Command{
		Use:               "lightstore",
		Short:             "P2P content store: create/list remotes, run the daemon",
		PersistentPreRunE: rootInit,
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new signing key and print its lsd:// URL",
		Args:  cobra.NoArgs,
		RunE:  handleCreate,
	}
	createCmd.Flags().StringP("remote", "r", "", "name of the git remote to add for the newly created key")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List every stored key as an lsd:// URL",
		Args:  cobra.NoArgs,
		RunE:  handleList,
	}

	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Start the daemon and run until killed",
		Args:  cobra.NoArgs,
		RunE:  handleDaemon,
	}
	daemonCmd.Flags().String("seeds-file", "", "load bootstrap seeds from a static YAML file instead of config/env")

	root.AddCommand(createCmd, listCmd, daemonCmd)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
