// Banter CLI - command line client for the Banter chat service.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/banterlabs/banter/clients/go/banter"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	baseURL := os.Getenv("BANTER_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	configDir := banter.ConfigDir()
	creds, _ := banter.LoadCredentials(configDir)

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Logger().
		Level(zerolog.WarnLevel)

	client := banter.NewClient(baseURL, creds.Provider())
	threads := banter.NewThreadManager(client, banter.NewFileThreadStore(configDir), logger)
	session := banter.NewSession(client, threads, banter.NotifierFunc(func(msg string) {
		fmt.Fprintln(os.Stderr, "!", msg)
	}), logger)

	ctx := context.Background()
	cmd := os.Args[1]

	switch cmd {
	case "register":
		fresh, err := banter.Register(ctx, baseURL)
		exitOnError(err)
		exitOnError(fresh.Save(configDir))
		fmt.Printf("Registered as: %s\n", fresh.UserID)

	case "send":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: banter send <message> [image-path]")
			os.Exit(1)
		}
		var att *banter.Attachment
		if len(os.Args) > 3 {
			a, err := banter.EncodeAttachment(os.Args[3])
			exitOnError(err)
			att = a
		}
		if style := os.Getenv("BANTER_STYLE"); style != "" {
			session.SetStyle(banter.ParseStyle(style))
		}
		session.Resume(ctx)
		exitOnError(session.Send(ctx, os.Args[2], att))
		printTurns(session.Turns())

	case "history":
		session.Resume(ctx)
		printTurns(session.Turns())

	case "threads":
		list, err := client.ListThreads(ctx)
		exitOnError(err)
		for _, th := range list {
			fmt.Printf("  %s  %s (%s)\n", th.ID, th.Title, th.UpdatedAt.Format("2006-01-02 15:04"))
		}

	case "new":
		exitOnError(session.NewThread(ctx))
		fmt.Printf("Started thread: %s\n", session.CurrentThread())

	case "switch":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: banter switch <thread_id>")
			os.Exit(1)
		}
		session.SwitchThread(ctx, os.Args[2])
		printTurns(session.Turns())

	case "delete":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: banter delete <thread_id>")
			os.Exit(1)
		}
		exitOnError(session.DeleteThread(ctx, os.Args[2]))
		fmt.Println("Deleted.")

	case "stats":
		stats, err := client.GetReferralStats(ctx)
		exitOnError(err)
		printJSON(stats)

	case "payouts":
		payouts, err := client.ListPayouts(ctx)
		exitOnError(err)
		for _, p := range payouts {
			fmt.Printf("  %s  $%.2f (net $%.2f)  %s\n", p.ID, p.Amount, p.NetAmount, p.Status)
		}

	case "payout":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: banter payout <amount>")
			os.Exit(1)
		}
		amount, err := strconv.ParseFloat(os.Args[2], 64)
		exitOnError(err)
		fee, net := banter.FeeBreakdown(amount)
		fmt.Printf("Requesting $%.2f (fee $%.2f, net $%.2f)\n", amount, fee, net)
		payout, err := client.RequestPayout(ctx, amount)
		exitOnError(err)
		printJSON(payout)

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`Banter CLI - chat with the Banter assistant

Usage: banter <command> [options]

Commands:
  register                Obtain and store credentials
  send <msg> [image]      Send a message (resumes the saved thread)
  history                 Show the saved thread's messages
  threads                 List your threads
  new                     Start a new thread
  switch <thread_id>      Switch to a thread and show its history
  delete <thread_id>      Delete a thread
  stats                   Show referral earnings
  payouts                 List payout requests
  payout <amount>         Request a payout

Environment:
  BANTER_URL      Server URL (default: http://localhost:8080)
  BANTER_CONFIG   Config directory (default: ~/.banter)
  BANTER_STYLE    Reply style: confident, flirty, funny, smooth`)
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func printTurns(turns []banter.Turn) {
	for _, turn := range turns {
		ts := turn.Timestamp.Local().Format("15:04:05")
		fmt.Printf("[%s] %s: %s\n", ts, turn.Role, turn.Content)
	}
}

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}
