// Command growmind はフォーカスタイマーのAPIサーバー・ワーカー・ローカル実行を提供する。
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/growmind/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "growmind: %v\n", err)
		os.Exit(1)
	}
}
