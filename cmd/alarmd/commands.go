package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rjwilson47/AutostopAlarms/internal/alarm"
	"github.com/rjwilson47/AutostopAlarms/internal/audio"
	"github.com/rjwilson47/AutostopAlarms/internal/config"
	"github.com/rjwilson47/AutostopAlarms/internal/engine"
	"github.com/rjwilson47/AutostopAlarms/internal/notify"
	"github.com/rjwilson47/AutostopAlarms/internal/paths"
	"github.com/rjwilson47/AutostopAlarms/internal/store"
)

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func loadConfig(configPath string) config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		fatal(err)
	}
	return cfg
}

func openStore(cfg config.Config) *store.SQLiteStore {
	s, err := store.NewSQLiteStore(cfg.Database)
	if err != nil {
		fatal(err)
	}
	return s
}

// buildLogger constructs a zap logger from the config's level and format.
func buildLogger(cfg config.Log) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zcfg zap.Config
	if cfg.Format == "json" {
		zcfg = zap.NewProductionConfig()
		zcfg.EncoderConfig.TimeKey = "timestamp"
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	log, err := zcfg.Build()
	if err != nil {
		fatal(err)
	}
	return log
}

func initConfig() {
	path, err := config.WriteDefault()
	if err != nil {
		fatal(err)
	}
	fmt.Printf("wrote %s\n", path)
}

func serve(configPath string) {
	cfg := loadConfig(configPath)
	log := buildLogger(cfg.Log)
	defer log.Sync()

	st := openStore(cfg)
	defer st.Close()

	player := audio.NewPlayer(float64(cfg.Volume) / 100)
	sched := notify.NewTimerScheduler(log)
	defer sched.Close()

	opts := engine.Options{
		SnoozeOffset: time.Duration(cfg.SnoozeMinutes) * time.Minute,
		Assets:       cfg.Assets,
	}
	if cfg.MQTT.Broker != "" {
		clientID := cfg.MQTT.ClientID
		if clientID == "" {
			clientID = paths.AppDirName
		}
		topic := cfg.MQTT.Topic
		if topic == "" {
			topic = "alarmd/fired"
		}
		opts.Announcer = &notify.Announcer{
			Broker:   cfg.MQTT.Broker,
			ClientID: clientID,
			Topic:    topic,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
		}
	}

	eng := engine.New(st, sched, player, log, opts)
	if err := eng.RescheduleAll(); err != nil {
		log.Warn("initial notification scheduling failed", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go controlLoop(ctx, cancel, eng)

	log.Info("alarm engine running", zap.String("database", st.Path()))
	eng.Run(ctx)
	log.Info("alarm engine stopped")
}

// controlLoop reads simple commands from stdin while the engine runs.
func controlLoop(ctx context.Context, cancel context.CancelFunc, eng *engine.Engine) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		switch strings.TrimSpace(scanner.Text()) {
		case "stop":
			eng.StopRinging()
		case "snooze":
			derived, err := eng.Snooze()
			switch {
			case errors.Is(err, engine.ErrNotRinging):
				fmt.Println("nothing is ringing")
			case errors.Is(err, engine.ErrSnoozeDisabled):
				fmt.Println("this alarm does not offer snooze")
			case err != nil:
				fmt.Fprintf(os.Stderr, "snooze failed: %v\n", err)
			default:
				fmt.Printf("snoozed until %s\n", derived.TimeOfDay())
			}
		case "quit", "exit":
			cancel()
			return
		case "":
		default:
			fmt.Println("commands: stop, snooze, quit")
		}
	}
}

func addAlarm(configPath string, args []string) {
	var (
		timeSpec  string
		label     string
		repeatCSV string
		stopSpec  string
		snooze    bool
		sound     = audio.DefaultProfile
	)

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--time":
			i++
			timeSpec = argValue(args, i, "--time")
		case "--label":
			i++
			label = argValue(args, i, "--label")
		case "--repeat":
			i++
			repeatCSV = argValue(args, i, "--repeat")
		case "--stop":
			i++
			stopSpec = argValue(args, i, "--stop")
		case "--snooze":
			snooze = true
		case "--sound":
			i++
			sound = argValue(args, i, "--sound")
		default:
			fatal(fmt.Errorf("unknown add option %q", args[i]))
		}
	}

	if timeSpec == "" {
		fatal(fmt.Errorf("--time HH:MM is required"))
	}
	hour, minute, err := parseTimeOfDay(timeSpec)
	if err != nil {
		fatal(err)
	}

	r := alarm.New(hour, minute, label)
	r.SnoozeEnabled = snooze
	r.Sound = sound
	if repeatCSV != "" {
		r.Repeat, err = parseRepeat(repeatCSV)
		if err != nil {
			fatal(err)
		}
	}
	if stopSpec != "" && stopSpec != "manual" {
		seconds, err := strconv.Atoi(stopSpec)
		if err != nil || seconds <= 0 {
			fatal(fmt.Errorf("--stop takes a positive number of seconds or \"manual\""))
		}
		r.Stop = alarm.StopAfter(time.Duration(seconds) * time.Second)
	}

	cfg := loadConfig(configPath)
	st := openStore(cfg)
	defer st.Close()

	if err := st.Upsert(r); err != nil {
		fatal(err)
	}

	next := "never"
	if at, ok := alarm.NextFire(r, time.Now()); ok {
		next = at.Format("Mon Jan 2 15:04")
	}
	fmt.Printf("added %s  %s  next: %s\n", r.ID, r.TimeOfDay(), next)
}

func argValue(args []string, i int, flag string) string {
	if i >= len(args) {
		fatal(fmt.Errorf("%s requires a value", flag))
	}
	return args[i]
}

// parseTimeOfDay parses "HH:MM" into hour and minute.
func parseTimeOfDay(spec string) (int, int, error) {
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("time must be HH:MM, got %q", spec)
	}
	hour, err1 := strconv.Atoi(parts[0])
	minute, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("time must be HH:MM, got %q", spec)
	}
	return hour, minute, nil
}

// parseRepeat parses comma-separated weekday codes ("2,4,6").
func parseRepeat(csv string) ([]alarm.Weekday, error) {
	parts := strings.Split(csv, ",")
	out := make([]alarm.Weekday, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 1 || n > 7 {
			return nil, fmt.Errorf("repeat days must be codes 1-7 (1=Sunday), got %q", p)
		}
		out = append(out, alarm.Weekday(n))
	}
	return out, nil
}

func listAlarms(configPath string) {
	cfg := loadConfig(configPath)
	st := openStore(cfg)
	defer st.Close()

	alarms, err := st.List()
	if err != nil {
		fatal(err)
	}
	if len(alarms) == 0 {
		fmt.Println("no alarms")
		return
	}

	now := time.Now()
	for _, r := range alarms {
		state := "on "
		if !r.Enabled {
			state = "off"
		}
		repeat := "once"
		if !r.OneShot() {
			days := make([]string, len(r.Repeat))
			for i, d := range r.Repeat {
				days[i] = strconv.Itoa(int(d))
			}
			repeat = "days " + strings.Join(days, ",")
		}
		next := ""
		if r.Enabled {
			if at, ok := alarm.NextFire(r, now); ok {
				next = "  next " + at.Format("Mon 15:04")
			}
		}
		fmt.Printf("%s  [%s]  %s  %-6s  stop=%s  sound=%s%s  %s\n",
			r.ID, state, r.TimeOfDay(), repeat, r.Stop, r.Sound, next, r.Label)
	}
}

func removeAlarm(configPath string, args []string) {
	if len(args) != 1 {
		fatal(fmt.Errorf("usage: alarmd remove <id>"))
	}
	cfg := loadConfig(configPath)
	st := openStore(cfg)
	defer st.Close()

	if err := st.Remove(args[0]); err != nil {
		fatal(err)
	}
	fmt.Printf("removed %s\n", args[0])
}

func setAlarmEnabled(configPath string, args []string, enabled bool) {
	if len(args) != 1 {
		fatal(fmt.Errorf("usage: alarmd enable|disable <id>"))
	}
	cfg := loadConfig(configPath)
	st := openStore(cfg)
	defer st.Close()

	if err := st.SetEnabled(args[0], enabled); err != nil {
		fatal(err)
	}
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	fmt.Printf("%s %s\n", state, args[0])
}

func listSounds() {
	names := make([]string, 0, len(audio.Profiles))
	for name := range audio.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := audio.Profiles[name]
		fmt.Printf("%-9s %7.2f Hz  beep %s / silence %s\n",
			p.Name, p.Frequency, p.Beep, p.Silence)
	}
}

func previewSound(configPath string, args []string) {
	if len(args) != 1 {
		fatal(fmt.Errorf("usage: alarmd preview <sound>"))
	}
	name := args[0]
	if _, ok := audio.Profiles[name]; !ok {
		fatal(fmt.Errorf("unknown sound %q (see 'alarmd sounds')", name))
	}

	cfg := loadConfig(configPath)
	player := audio.NewPlayer(float64(cfg.Volume) / 100)

	const sample = 2 * time.Second
	if err := player.Play(audio.GeneratePCM(audio.Profiles[name], sample), false); err != nil {
		fatal(err)
	}
	time.Sleep(sample + 200*time.Millisecond)
	player.Stop()
}

func exportSound(args []string) {
	if len(args) != 2 {
		fatal(fmt.Errorf("usage: alarmd export <sound> <file.wav>"))
	}
	name, path := args[0], args[1]
	p, ok := audio.Profiles[name]
	if !ok {
		fatal(fmt.Errorf("unknown sound %q (see 'alarmd sounds')", name))
	}

	wav := audio.EncodeWAV(audio.GeneratePCM(p, 5*time.Second))
	if err := paths.AtomicWrite(path, wav); err != nil {
		fatal(err)
	}
	fmt.Printf("wrote %s (%d bytes)\n", path, len(wav))
}
