// Package main prints the stored sound settings and custom sounds.
//
// Usage:
//
//	DATA_PATH=~/Remowork/soundswap go run ./cmd/soundinspect
package main

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/remowork/soundswap/internal/domain"
	"github.com/remowork/soundswap/internal/store/sqlite"
)

func main() {
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/Remowork/soundswap")
	}

	opts := badger.DefaultOptions(filepath.Join(dataPath, "settings")).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open settings database: %v", err)
	}
	defer db.Close()

	fmt.Println("=== Sound Settings ===")
	fmt.Println()

	err = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("sounds:")
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())

			err := item.Value(func(val []byte) error {
				switch {
				case strings.HasSuffix(key, ":revision") && len(val) == 8:
					fmt.Printf("Revision: %d\n", binary.BigEndian.Uint64(val))
				case strings.HasSuffix(key, ":settings"):
					var settings domain.Settings
					if err := json.Unmarshal(val, &settings); err != nil {
						return err
					}
					printSettings(&settings)
				default:
					fmt.Printf("Unknown key %s (%d bytes)\n", key, len(val))
				}
				return nil
			})
			if err != nil {
				log.Printf("Error reading %s: %v", key, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Error iterating settings: %v", err)
	}

	blobs, err := sqlite.OpenReadOnly(filepath.Join(dataPath, "sounds.db"))
	if err != nil {
		log.Fatalf("Failed to open blob database: %v", err)
	}
	defer blobs.Close()

	sounds, err := blobs.ListSounds(context.Background())
	if err != nil {
		log.Fatalf("Error listing custom sounds: %v", err)
	}

	fmt.Println()
	fmt.Println("=== Custom Sounds ===")
	for _, b := range sounds {
		fmt.Printf("  %-12s %-28s %-12s %8d bytes  %s\n",
			b.ID, b.FileName, b.MimeType, b.Size, b.UpdatedAt.Format("2006-01-02 15:04:05"))
	}

	usage, err := blobs.Usage(context.Background())
	if err != nil {
		log.Fatalf("Error reading blob usage: %v", err)
	}
	fmt.Printf("Total: %d sounds, %d bytes\n", usage.Count, usage.TotalBytes)
	if !usage.LastUpdate.IsZero() {
		fmt.Printf("Last upload: %s\n", usage.LastUpdate.Format("2006-01-02 15:04:05"))
	}
}

func printSettings(s *domain.Settings) {
	fmt.Printf("Enabled: %t\n", s.Enabled)
	if !s.UpdatedAt.IsZero() {
		fmt.Printf("Updated: %s\n", s.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	for _, id := range slices.Sorted(maps.Keys(s.Sounds)) {
		setting := s.Sounds[id]
		if setting.PresetID != "" {
			fmt.Printf("  %-12s %s (%s)\n", id, setting.Mode, setting.PresetID)
			continue
		}
		fmt.Printf("  %-12s %s\n", id, setting.Mode)
	}
}
