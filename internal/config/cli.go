package config

import (
	"flag"
	"os"
)

// ParseFlags parses command line flags and returns the config file path
func ParseFlags() string {
	var configFile string
	flag.StringVar(&configFile, "config", "", "Path to configuration file")
	help := flag.Bool("help", false, "Show help")

	flag.Parse()

	if *help {
		flag.Usage()
		os.Exit(0)
	}
	return configFile
}
