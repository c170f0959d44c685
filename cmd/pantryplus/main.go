// Command pantryplus はPantry PlusのAPIサーバー・ワーカー・マイグレーションを起動する。
//
//	pantryplus [serve|worker|migrate|healthcheck]
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/pantryplus/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "pantryplus: %v\n", err)
		os.Exit(1)
	}
}
