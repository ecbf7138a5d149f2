package main

import (
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli"

	"github.com/ahamez/netcode-go/netcode"
)

// VERSION is injected by buildflags.
var VERSION = "SELFBUILD"

func main() {
	myApp := cli.NewApp()
	myApp.Name = "netcode-config"
	myApp.Usage = "validate and print a netcode JSON config file"
	myApp.Version = VERSION
	myApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "c",
			Value: "netcode.json",
			Usage: "config file to load",
		},
	}
	myApp.Action = func(c *cli.Context) error {
		cfg, err := netcode.LoadConfig(c.String("c"))
		if err != nil {
			color.Red("%+v", err)
			os.Exit(1)
		}
		printConfig(cfg)
		return nil
	}

	if err := myApp.Run(os.Args); err != nil {
		log.Printf("%+v\n", err)
		os.Exit(1)
	}
}

func printConfig(cfg *netcode.Config) {
	color.Green("field_width        : %d", cfg.FieldWidth)
	fmt.Printf("rate               : %d\n", cfg.Rate)
	fmt.Printf("max_rate           : %d\n", cfg.MaxRate)
	fmt.Printf("window_size        : %d (0 = unbounded)\n", cfg.WindowSize)
	fmt.Printf("code_type          : %s\n", cfg.CodeType)
	fmt.Printf("adaptive           : %t\n", cfg.Adaptive)
	fmt.Printf("in_order           : %t\n", cfg.InOrder)
	fmt.Printf("ack_frequency_ms   : %d\n", cfg.AckFreqMs)
	fmt.Printf("ack_nb_packets     : %d\n", cfg.AckNbPkts)
	fmt.Printf("stats_log          : %s\n", cfg.StatsLog)
	fmt.Printf("stats_period_secs  : %d\n", cfg.StatsPeriod)
	color.Green("config is valid")
}
