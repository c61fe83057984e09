// Command ymapcat dials an IMAP4rev1 server, logs in, and dumps the
// mailbox list — a minimal smoke test for the engine.
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"log"
	"time"

	"ymap"
)

func main() {
	addr := flag.String("addr", "localhost:993", "host:port of the IMAP server")
	user := flag.String("user", "", "login username")
	pass := flag.String("pass", "", "login password")
	insecure := flag.Bool("insecure", false, "skip TLS certificate verification")
	optionsPath := flag.String("options", "", "path to a YAML options file (defaults searched if empty)")
	flag.Parse()

	opts, err := ymap.LoadOptions(*optionsPath)
	if err != nil {
		log.Fatalf("loading options: %v", err)
	}
	if opts.Logger == nil {
		opts.Logger = ymap.NewStdLogger(opts.Verbosity)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	log.Printf("connecting to %s", *addr)
	client, err := ymap.DialTLS(ctx, *addr, &tls.Config{InsecureSkipVerify: *insecure}, opts) //nolint:gosec // caller-controlled via -insecure
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer client.Close()

	log.Printf("greeting: %v, capabilities: %v", client.Greeting, client.Capabilities())

	if *user != "" {
		rec, err := client.Login(ctx, *user, *pass)
		if err != nil {
			log.Fatalf("login: %v", err)
		}
		if rec.Status != "OK" {
			log.Fatalf("login rejected: %s %s", rec.Status, rec.Text)
		}
		log.Printf("logged in as %s", *user)
	}

	rec, err := client.List(ctx, "", "*")
	if err != nil {
		log.Fatalf("list: %v", err)
	}
	fmt.Printf("LIST completed: %s %s\n", rec.Status, rec.Text)

	for {
		data, err := client.Next(ctx)
		if err != nil {
			break
		}
		if data.Kind == 0 {
			continue
		}
		fmt.Printf("untagged: %+v\n", data)
	}
}
