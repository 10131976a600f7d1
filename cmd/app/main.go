package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/BuzzLyutic/taskr/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		// ошибка операции уже показана пользователю
		if !errors.Is(err, cli.ErrFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
