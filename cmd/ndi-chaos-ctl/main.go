package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"ndi-chaos-go/internal/remote"
)

func main() {
	var (
		url     = flag.String("url", "http://localhost:8080", "Sender HTTP base URL")
		timeout = flag.Duration("timeout", 2*time.Second, "Request timeout")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <status | command...>\n\n", os.Args[0])
		fmt.Fprintln(flag.CommandLine.Output(), "Commands are sent as typed at the sender console, e.g. \"s 100\" or \"j 5 40\".")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	client, err := remote.NewClient(*url)
	if err != nil {
		logrus.WithError(err).Fatal("invalid url")
	}
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	line := strings.Join(flag.Args(), " ")
	if line == "status" {
		st, err := client.Status(ctx)
		if err != nil {
			logrus.WithError(err).Fatal("status request failed")
		}
		fmt.Printf("%s %s: %d frames sent, %d stalls, %d send errors, max gap %.3f ms\n",
			st.Source, st.State, st.FramesSent, st.Stalls, st.SendErrors, float64(st.MaxGapNs)/1e6)
		return
	}

	res, err := client.Command(ctx, line)
	if err != nil {
		logrus.WithError(err).Fatal("command request failed")
	}
	if !res.OK {
		fmt.Fprintf(os.Stderr, "Error when executing command: %s\n", res.Message)
		os.Exit(1)
	}
	if res.Message != "" {
		fmt.Println(res.Message)
	}
}
