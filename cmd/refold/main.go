package main

import (
	"os"
	"os/signal"

	"github.com/arthur-debert/refold/cmd/refold/commands"
	"github.com/arthur-debert/refold/pkg/repocache"
)

func main() {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		_ = repocache.Cleanup()
		os.Exit(2)
	}()

	rootCmd := commands.NewRootCmd()
	err := rootCmd.Execute()
	_ = repocache.Cleanup()
	if err != nil {
		commands.PrintError(err)
		os.Exit(1)
	}
}
