package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeney/growbox/internal/actuator"
	"github.com/sweeney/growbox/internal/logic"
	"github.com/sweeney/growbox/internal/settings"
	"github.com/sweeney/growbox/internal/store"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect or change the saved settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the saved settings as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(db *store.SQLite) error {
			return showSettings(cmd.OutOrStdout(), db)
		})
	},
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the saved settings so the next start uses defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(db *store.SQLite) error {
			if err := db.Reset(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "settings reset to defaults")
			return nil
		})
	},
}

var settingsPresetCmd = &cobra.Command{
	Use:   "preset NAME",
	Short: "Apply a plant preset to the saved settings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(db *store.SQLite) error {
			s, err := applyPreset(db, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied preset %s\n", s.Preset)
			return nil
		})
	},
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print what the saved settings ask of the outputs right now and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(db *store.SQLite) error {
			s, err := loadOrDefaults(db)
			if err != nil {
				return err
			}
			printState(cmd.OutOrStdout(), s, time.Now())
			if info, err := db.Info(); err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %d times, last %s\n", info.Saves, info.UpdatedAt.Format(time.RFC3339))
			}
			return nil
		})
	},
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsResetCmd)
	settingsCmd.AddCommand(settingsPresetCmd)
}

func withStore(fn func(db *store.SQLite) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open settings db: %w", err)
	}
	defer db.Close()
	return fn(db)
}

func loadOrDefaults(st settings.Store) (settings.Settings, error) {
	s, err := st.Load()
	if errors.Is(err, settings.ErrNotFound) {
		return settings.Defaults(), nil
	}
	return s, err
}

func showSettings(w io.Writer, st settings.Store) error {
	s, err := st.Load()
	switch {
	case errors.Is(err, settings.ErrNotFound):
		fmt.Fprintln(w, "# no saved settings, showing defaults")
		s = settings.Defaults()
	case err != nil:
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func applyPreset(st settings.Store, name string) (settings.Settings, error) {
	s, err := loadOrDefaults(st)
	if err != nil {
		return settings.Settings{}, err
	}
	for _, p := range settings.Presets {
		if strings.EqualFold(p.Name, name) {
			s.ApplyPreset(p)
			if err := st.Save(s); err != nil {
				return settings.Settings{}, err
			}
			return s, nil
		}
	}
	var names []string
	for _, p := range settings.Presets {
		names = append(names, p.Name)
	}
	return settings.Settings{}, fmt.Errorf("unknown preset %q (have %s)", name, strings.Join(names, ", "))
}

// printState reports the outputs the saved settings call for at now, as far
// as they can be decided without sensor readings.
func printState(w io.Writer, s settings.Settings, now time.Time) {
	fmt.Fprintf(w, "Preset: %s\n", s.Preset)
	fmt.Fprintf(w, "Auto mode: %s\n", actuator.StateString(s.Automation.Enabled))

	l := s.Light
	switch {
	case !s.Automation.Enabled || !s.Automation.Light:
		fmt.Fprintln(w, "Light: manual")
	case l.Kind == settings.LuxThreshold:
		fmt.Fprintf(w, "Light: follows lux (on below %d)\n", l.Threshold)
	default:
		on := logic.InWindow(now.Hour()*60+now.Minute(), l.OnMinuteOfDay(), l.OffMinuteOfDay())
		fmt.Fprintf(w, "Light: %s (%02d:%02d-%02d:%02d)\n",
			actuator.StateString(on), l.OnHour, l.OnMinute, l.OffHour, l.OffMinute)
	}

	if slot, at, ok := nextSlot(s.Schedule, now); ok && s.Automation.Enabled && s.Automation.Schedule {
		fmt.Fprintf(w, "Next watering: %s %d mL (slot %d)\n", at.Format("Mon 15:04"), s.Schedule[slot].VolumeMl, slot+1)
	} else {
		fmt.Fprintln(w, "Next watering: none scheduled")
	}
}

// nextSlot returns the enabled schedule slot that fires soonest after now.
func nextSlot(sched settings.Schedule, now time.Time) (int, time.Time, bool) {
	best := -1
	var bestAt time.Time
	for i, sl := range sched {
		if !sl.Enabled || sl.VolumeMl == 0 {
			continue
		}
		at := time.Date(now.Year(), now.Month(), now.Day(), int(sl.Hour), int(sl.Minute), 0, 0, now.Location())
		if !at.After(now) {
			at = at.AddDate(0, 0, 1)
		}
		if best < 0 || at.Before(bestAt) {
			best, bestAt = i, at
		}
	}
	return best, bestAt, best >= 0
}
