// Command genfixture regenerates the golden reference-scenario fixture from
// the domain package, so the checked-in file always matches real model
// behavior.
//
// Usage:
//
//	go run ./cmd/genfixture -out internal/domain/testdata/reference_scenario.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/couchcryptid/water-budget-service/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the reference scenario fixture")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	fixture, err := domain.NewFixture(domain.ReferenceScenario())
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(fixture, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(*out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}

	log.Printf("wrote %s: total irrigation %.6f over %d season months, drought months %v",
		*out, fixture.TotalIrrigation, fixture.Schedule.Season.Len(), fixture.Schedule.DroughtMonths())
	return nil
}
