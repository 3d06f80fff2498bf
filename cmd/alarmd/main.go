package main

import (
	"fmt"
	"os"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	args := os.Args[1:]
	configPath := ""

	// Parse flags
	filtered := args[:0]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--config", "-c":
			if i+1 < len(args) {
				configPath = args[i+1]
				i++
			} else {
				fmt.Fprintf(os.Stderr, "Error: --config requires a file path\n")
				os.Exit(1)
			}
		default:
			filtered = append(filtered, args[i])
		}
	}

	if len(filtered) < 1 {
		printUsage()
		os.Exit(1)
	}

	switch filtered[0] {
	case "help", "-h", "--help":
		printUsage()
	case "version", "-V", "--version":
		printVersion()
	case "init":
		initConfig()
	case "serve":
		serve(configPath)
	case "add":
		addAlarm(configPath, filtered[1:])
	case "list":
		listAlarms(configPath)
	case "remove":
		removeAlarm(configPath, filtered[1:])
	case "enable":
		setAlarmEnabled(configPath, filtered[1:], true)
	case "disable":
		setAlarmEnabled(configPath, filtered[1:], false)
	case "sounds":
		listSounds()
	case "preview":
		previewSound(configPath, filtered[1:])
	case "export":
		exportSound(filtered[1:])
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", filtered[0])
		fmt.Fprintf(os.Stderr, "Run 'alarmd help' for usage.\n")
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`alarmd - timed alarms with repeat, snooze, and auto-stop

Usage:
  alarmd [--config <path>] <command> [arguments]

Commands:
  serve                       run the alarm engine until interrupted;
                              type "stop", "snooze", or "quit" while running
  add --time HH:MM [options]  add an alarm
  list                        list all alarms
  remove <id>                 delete an alarm
  enable <id>                 enable an alarm
  disable <id>                disable an alarm
  sounds                      list built-in sound profiles
  preview <sound>             play a short sample of a sound profile
  export <sound> <file.wav>   write a sound profile as a WAV file
  init                        write a starter config file
  version                     print version information
  help                        show this help

Add options:
  --time HH:MM      wall-clock firing time (required)
  --label <text>    display label
  --repeat <days>   comma-separated weekday codes 1-7 (1=Sunday);
                    omit for a one-shot alarm
  --stop <seconds>  auto-stop after this many seconds (default: manual)
  --snooze          offer snooze while ringing
  --sound <name>    sound profile (default Standard; see 'alarmd sounds')
`)
}

func printVersion() {
	fmt.Printf("alarmd %s (built %s)\n", version, buildDate)
}
