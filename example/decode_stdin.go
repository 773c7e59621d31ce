package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"flashcw"
	"flashcw/logger"
)

// 从标准输入读亮度轨迹并实时打印解码结果:
//
//	flashcw generate "CQ CQ DE BG7XYZ" | go run ./example
func main() {
	cfg := flashcw.DefaultConfig()
	src := flashcw.NewCsvTraceSource(os.Stdin, 30)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sys := flashcw.NewLightSystem(cfg, src, "stdin", logger.New(logger.Config{Level: "warn"}))
	sys.OnChar = func(ev flashcw.CharEvent) {
		fmt.Printf("%s\t%-8s %.1f WPM\n", ev.Char, ev.Pattern, ev.WPM)
	}

	res, err := sys.Run(ctx)
	if err != nil {
		log.Fatalf("decode: %v", err)
	}
	fmt.Printf("\n%s\n", res.Text)
}
