package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/softclaw/hatchling/internal/config"
	"github.com/softclaw/hatchling/internal/creature"
	"github.com/softclaw/hatchling/internal/discovery"
	"github.com/softclaw/hatchling/internal/engine"
	"github.com/softclaw/hatchling/internal/habitat"
	"github.com/softclaw/hatchling/internal/server"
	"github.com/softclaw/hatchling/internal/storage"
)

var (
	denPath string
	verbose bool
)

const Version = "v0.1.0"

var hatchlingNames = []string{
	"Pip",
	"Mossy",
	"Clover",
	"Ember",
	"Nimbus",
	"Tadpole",
}

func randomHatchlingName() string {
	return hatchlingNames[rand.Intn(len(hatchlingNames))]
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "hatchling",
		Short: "A virtual creature that hatches in your terminal",
		Run: func(cmd *cobra.Command, args []string) {
			if version, _ := cmd.Flags().GetBool("version"); version {
				fmt.Println(Version)
				return
			}
			cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&denPath, "den", "", "Path to the den directory")
	rootCmd.PersistentFlags().BoolVar(&verbose, "debug", false, "Enable debug logging")
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")

	cobra.OnInitialize(setupLogging)

	rootCmd.AddCommand(adoptCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(waterCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(petCmd)
	rootCmd.AddCommand(teachCmd)
	rootCmd.AddCommand(sleepCmd)
	rootCmd.AddCommand(wakeCmd)
	rootCmd.AddCommand(talkCmd)
	rootCmd.AddCommand(singCmd)
	rootCmd.AddCommand(warmCmd)
	rootCmd.AddCommand(steadyCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(muteCmd)
	rootCmd.AddCommand(unmuteCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(completionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogging() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// findDen resolves the den directory: flag, env, walk-up discovery, then
// the global den.
func findDen() (string, error) {
	if denPath != "" {
		return denPath, nil
	}

	e, err := config.ParseEnv()
	if err != nil {
		return "", err
	}
	if e.Den != "" {
		return e.Den, nil
	}

	cwd, _ := os.Getwd()
	den, found, err := discovery.FindDen(cwd)
	if err != nil {
		return "", err
	}
	if found {
		return den, nil
	}

	den = discovery.GlobalDen()
	if _, err := os.Stat(den); err != nil {
		return "", fmt.Errorf("no den found. Run 'hatchling adopt' to create one")
	}
	return den, nil
}

// openBackend picks the storage backend from config, with an env override.
func openBackend(den string, cfg config.Care) (storage.Backend, func(), error) {
	kind := cfg.StorageBackend
	if e, err := config.ParseEnv(); err == nil && e.Backend != "" {
		kind = e.Backend
	}

	switch kind {
	case "sqlite":
		b, err := storage.OpenSQLite(filepath.Join(den, "state.db"))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite backend: %w", err)
		}
		return b, func() { _ = b.Close() }, nil
	case "memory":
		return storage.NewMemoryBackend(), func() {}, nil
	default:
		b, err := storage.NewFileBackend(den, cfg.Compress)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open file backend: %w", err)
		}
		return b, func() {}, nil
	}
}

type session struct {
	den     string
	cfg     config.Care
	store   *habitat.Store
	adapter *storage.Adapter
	close   func()
}

// openSession loads config and state from the den. Missing or corrupt
// snapshots fall back to a fresh egg.
func openSession() (*session, error) {
	den, err := findDen()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(discovery.CarePath(den), randomHatchlingName())
	if err != nil {
		return nil, err
	}

	backend, closeBackend, err := openBackend(den, cfg)
	if err != nil {
		return nil, err
	}

	adapter := storage.NewAdapter(backend, cfg.SaveDebounce())
	state, restored := adapter.Load()
	if !restored {
		state = creature.NewEgg(cfg.Name, time.Now())
	}

	store := habitat.New(state, cfg, habitat.SystemClock())
	store.SetSaver(adapter.Save)

	return &session{
		den:     den,
		cfg:     cfg,
		store:   store,
		adapter: adapter,
		close:   closeBackend,
	}, nil
}

// executeStateful is the shared command shape: load, reconcile offline
// decay, act, check for a hatch, then flush the snapshot.
func executeStateful(fn func(*session) error) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	s.store.CatchUp()
	s.store.CheckHatch()

	if err := fn(s); err != nil {
		return err
	}

	s.store.CheckHatch()
	s.adapter.FlushState(s.store.Snapshot())
	return nil
}

// noopNotice prints the quiet ignored-button message. Ineligible actions
// are not errors.
func noopNotice(s *session, action string) {
	snap := s.store.Snapshot()
	switch {
	case snap.EggPhase:
		fmt.Printf("The egg doesn't respond to %s yet.\n", action)
	case snap.IsSleeping:
		fmt.Printf("%s is asleep. Shh.\n", snap.Name)
	default:
		fmt.Printf("%s isn't ready for %s right now.\n", snap.Name, action)
	}
}

var adoptCmd = &cobra.Command{
	Use:   "adopt [name]",
	Short: "Adopt a new egg (creates a den)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		global, _ := cmd.Flags().GetBool("global")

		var baseDir string
		if global {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("failed to get home directory: %w", err)
			}
			baseDir = home
		} else {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get current directory: %w", err)
			}
			baseDir = cwd
		}

		den := filepath.Join(baseDir, discovery.DenDirName)
		if denPath != "" {
			den = denPath
		}
		carePath := discovery.CarePath(den)
		if _, err := os.Stat(carePath); err == nil {
			return fmt.Errorf("a den already exists at %s. Use 'reset' first", den)
		}

		name := randomHatchlingName()
		if len(args) == 1 {
			name = args[0]
		}

		if err := os.MkdirAll(den, 0755); err != nil {
			return fmt.Errorf("failed to create den: %w", err)
		}
		cfg := config.Default(name)
		if err := config.Save(cfg, carePath); err != nil {
			return err
		}

		backend, closeBackend, err := openBackend(den, cfg)
		if err != nil {
			return err
		}
		defer closeBackend()
		adapter := storage.NewAdapter(backend, cfg.SaveDebounce())
		adapter.FlushState(creature.NewEgg(name, time.Now()))

		fmt.Printf("An egg named '%s' has arrived! Keep it warm.\n", name)
		return nil
	},
}

func init() {
	adoptCmd.Flags().Bool("global", false, "Create the den in your home directory")
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show creature status",
	RunE: func(cmd *cobra.Command, args []string) error {
		full, _ := cmd.Flags().GetBool("full")
		return executeStateful(func(s *session) error {
			snap := s.store.Snapshot()

			if snap.EggPhase {
				fmt.Printf("%s is still an egg", snap.Name)
				if snap.IsWobbling {
					fmt.Print(" (wobbling!)")
				}
				fmt.Print("\n\n")
				fmt.Printf("warmth: %.0f\n", snap.Warmth)
				fmt.Printf("bond: %.0f\n", snap.Bond)
				fmt.Printf("stability: %.0f\n", snap.Stability)
				return nil
			}

			fmt.Printf("%s is %s\n\n", snap.Name, snap.Mood)
			fmt.Printf("health: %.0f\n", snap.Health)
			fmt.Printf("hunger: %.0f\n", snap.Hunger)
			fmt.Printf("thirst: %.0f\n", snap.Thirst)
			fmt.Printf("happiness: %.0f\n", snap.Happiness)
			fmt.Printf("energy: %.0f\n", snap.Energy)

			if full {
				for name, trick := range snap.Tricks {
					state := fmt.Sprintf("%.0f%%", trick.Progress)
					if trick.Learned {
						state = "learned"
					}
					fmt.Printf("trick %s: %s\n", name, state)
				}
				fmt.Printf("pending events: %d\n", len(snap.InteractionEvents))
			}
			return nil
		})
	},
}

func init() {
	statusCmd.Flags().Bool("full", false, "Include tricks and pending events")
}

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Feed your hatchling",
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeStateful(func(s *session) error {
			if !s.store.Feed() {
				noopNotice(s, "food")
				return nil
			}
			fmt.Printf("%s munches happily!\n", s.store.Snapshot().Name)
			return nil
		})
	},
}

var waterCmd = &cobra.Command{
	Use:   "water",
	Short: "Give your hatchling water",
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeStateful(func(s *session) error {
			if !s.store.GiveWater() {
				noopNotice(s, "water")
				return nil
			}
			fmt.Printf("%s drinks it all up!\n", s.store.Snapshot().Name)
			return nil
		})
	},
}

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play with your hatchling",
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeStateful(func(s *session) error {
			if !s.store.Play() {
				noopNotice(s, "playtime")
				return nil
			}
			fmt.Printf("%s zooms around!\n", s.store.Snapshot().Name)
			return nil
		})
	},
}

var petCmd = &cobra.Command{
	Use:   "pet",
	Short: "Pet your hatchling",
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeStateful(func(s *session) error {
			if !s.store.Pet() {
				noopNotice(s, "petting")
				return nil
			}
			fmt.Printf("%s leans into your hand.\n", s.store.Snapshot().Name)
			return nil
		})
	},
}

var teachCmd = &cobra.Command{
	Use:   "teach [trick]",
	Short: "Teach your hatchling a trick",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		trick := args[0]
		return executeStateful(func(s *session) error {
			if !s.store.Teach(trick) {
				snap := s.store.Snapshot()
				if t, ok := snap.Tricks[trick]; ok && t.Learned {
					fmt.Printf("%s already knows %s!\n", snap.Name, trick)
					return nil
				}
				noopNotice(s, "a lesson")
				return nil
			}
			snap := s.store.Snapshot()
			t := snap.Tricks[trick]
			if t.Learned {
				fmt.Printf("%s learned %s!\n", snap.Name, trick)
			} else {
				fmt.Printf("%s is practicing %s (%.0f%%).\n", snap.Name, trick, t.Progress)
			}
			return nil
		})
	},
}

var sleepCmd = &cobra.Command{
	Use:   "sleep",
	Short: "Put your hatchling to bed",
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeStateful(func(s *session) error {
			if !s.store.Sleep() {
				snap := s.store.Snapshot()
				if snap.IsSleeping {
					fmt.Printf("%s is already asleep.\n", snap.Name)
					return nil
				}
				noopNotice(s, "bedtime")
				return nil
			}
			fmt.Printf("%s curls up and falls asleep.\n", s.store.Snapshot().Name)
			return nil
		})
	},
}

var wakeCmd = &cobra.Command{
	Use:   "wake",
	Short: "Wake your hatchling up",
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeStateful(func(s *session) error {
			if !s.store.WakeUp() {
				snap := s.store.Snapshot()
				if !snap.EggPhase && !snap.IsSleeping {
					fmt.Printf("%s is already awake.\n", snap.Name)
					return nil
				}
				noopNotice(s, "waking")
				return nil
			}
			fmt.Printf("%s stretches and wakes up.\n", s.store.Snapshot().Name)
			return nil
		})
	},
}

var talkCmd = &cobra.Command{
	Use:   "talk",
	Short: "Talk to the egg",
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeStateful(func(s *session) error {
			if !s.store.TalkToEgg() {
				fmt.Println("There's no egg to talk to.")
				return nil
			}
			snap := s.store.Snapshot()
			if snap.EggPhase {
				fmt.Printf("You murmur to the egg. Bond: %.0f\n", snap.Bond)
			} else {
				fmt.Printf("The egg hatched! Say hello to %s!\n", snap.Name)
			}
			return nil
		})
	},
}

var singCmd = &cobra.Command{
	Use:   "sing",
	Short: "Sing to the egg (it must be warm)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeStateful(func(s *session) error {
			if !s.store.SingToEgg() {
				snap := s.store.Snapshot()
				if snap.EggPhase {
					fmt.Println("The egg is too cold to hear your song. Warm it first.")
					return nil
				}
				fmt.Println("There's no egg to sing to.")
				return nil
			}
			snap := s.store.Snapshot()
			if snap.EggPhase {
				fmt.Printf("You sing softly. Bond: %.0f\n", snap.Bond)
			} else {
				fmt.Printf("The egg hatched! Say hello to %s!\n", snap.Name)
			}
			return nil
		})
	},
}

var warmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Warm the egg",
	RunE: func(cmd *cobra.Command, args []string) error {
		hold, _ := cmd.Flags().GetInt("hold")
		return executeStateful(func(s *session) error {
			if !s.store.WarmEgg() {
				fmt.Println("There's no egg to warm.")
				return nil
			}
			// --hold simulates keeping a press down: the warm action
			// repeats at the configured interval.
			for i := 1; i < hold; i++ {
				time.Sleep(s.cfg.WarmRepeat())
				if !s.store.WarmEgg() {
					break
				}
			}
			fmt.Printf("The egg feels warmer. Warmth: %.0f\n", s.store.Snapshot().Warmth)
			return nil
		})
	},
}

func init() {
	warmCmd.Flags().Int("hold", 1, "Number of warm pulses to apply")
}

var steadyCmd = &cobra.Command{
	Use:   "steady",
	Short: "Steady a wobbling egg",
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeStateful(func(s *session) error {
			if !s.store.SteadyEgg() {
				snap := s.store.Snapshot()
				if snap.EggPhase {
					fmt.Println("The egg is sitting still.")
					return nil
				}
				fmt.Println("There's no egg to steady.")
				return nil
			}
			fmt.Println("You cup your hands around the egg until it settles.")
			return nil
		})
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show and acknowledge pending interaction events",
	RunE: func(cmd *cobra.Command, args []string) error {
		ack, _ := cmd.Flags().GetBool("ack")
		return executeStateful(func(s *session) error {
			events := s.store.Snapshot().InteractionEvents
			if len(events) == 0 {
				fmt.Println("No pending events.")
				return nil
			}

			// Replay is capped as a presentation concern; the queue itself
			// is unbounded.
			const renderCap = 30
			if len(events) > renderCap {
				events = events[len(events)-renderCap:]
			}

			var journal *storage.Journal
			if ack && s.cfg.Journal {
				journal = storage.NewJournal(filepath.Join(s.den, "journal"), "events")
				defer journal.Close()
			}

			for _, ev := range events {
				if ev.Text != "" {
					fmt.Printf("%s  %s: %s\n", ev.ID, ev.Type, ev.Text)
				} else {
					fmt.Printf("%s  %s\n", ev.ID, ev.Type)
				}
				if ack {
					consumed, ok := s.store.ConsumeEvent(ev.ID)
					if ok && journal != nil {
						if err := journal.Write(consumed); err != nil {
							slog.Warn("journal write failed", "error", err)
						}
					}
				}
			}
			return nil
		})
	},
}

func init() {
	eventsCmd.Flags().Bool("ack", false, "Consume listed events after printing")
}

var muteCmd = &cobra.Command{
	Use:   "mute",
	Short: "Mute creature sounds",
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeStateful(func(s *session) error {
			s.store.SetMuted(true)
			fmt.Println("Muted.")
			return nil
		})
	},
}

var unmuteCmd = &cobra.Command{
	Use:   "unmute",
	Short: "Unmute creature sounds",
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeStateful(func(s *session) error {
			s.store.SetMuted(false)
			fmt.Println("Unmuted.")
			return nil
		})
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the live engine (decay, day/night, wobbles)",
	Long: `Run the simulation engine in the foreground.

The engine ticks decay every few seconds, reconciles offline time,
handles automatic sleep and wake, and wobbles the egg at random
intervals. With --listen it also serves the renderer feed: a websocket
at /ws pushing full state snapshots, accepting action and consume
commands back.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		listen, _ := cmd.Flags().GetString("listen")
		if e, err := config.ParseEnv(); err == nil && listen == "" {
			listen = e.Listen
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log := slog.Default()
		eng := engine.New(s.store, s.cfg, log)

		var httpSrv *http.Server
		if listen != "" {
			srv := server.New(s.store, log)
			httpSrv = &http.Server{Addr: listen, Handler: srv.Handler()}
			go func() {
				log.Info("renderer feed listening", "addr", listen)
				if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("renderer feed failed", "error", err)
					stop()
				}
			}()
		}

		eng.Run(ctx)

		if httpSrv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(shutdownCtx)
		}

		// Final checkpoint on the way out.
		s.adapter.FlushState(s.store.Snapshot())
		return nil
	},
}

func init() {
	runCmd.Flags().String("listen", "", "Serve the renderer feed on this address (e.g. 127.0.0.1:7436)")
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the saved creature (a fresh egg arrives next time)",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		if err := s.adapter.Remove(); err != nil {
			return fmt.Errorf("failed to reset storage: %w", err)
		}
		fmt.Println("The den is empty. A new egg will arrive on the next command.")
		return nil
	},
}

var completionCmd = &cobra.Command{
	Use:       "completion [bash|zsh|fish|powershell]",
	Short:     "Generate shell completion script",
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := cmd.Root()
		switch args[0] {
		case "bash":
			return root.GenBashCompletion(os.Stdout)
		case "zsh":
			return root.GenZshCompletion(os.Stdout)
		case "fish":
			return root.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return root.GenPowerShellCompletion(os.Stdout)
		}
		return fmt.Errorf("unsupported shell: %s", args[0])
	},
}
