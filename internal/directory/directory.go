// Package directory resolves business locations and their staff rosters from a
// JSON config file. The send pipeline consults it through the Directory
// interface; how the file is provisioned is outside this core.
package directory

import (
	"encoding/json"
	"log/slog"
	"os"
	"strings"

	"github.com/joseph-ayodele/receipt-ledger/internal/common"
)

// Directory answers location/staff membership questions for the validation gate.
type Directory interface {
	IsValidLocation(locationID string) bool
	IsValidStaffForLocation(locationID, staffID string) bool
	LocationIDs() []string
	StaffName(locationID, staffID string) string
}

// Staff is one roster entry for a location.
type Staff struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Location is one business location with its staff roster.
type Location struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Staff []Staff `json:"staff"`
}

type fileDirectory struct {
	locations map[string]Location
	order     []string
}

// Load reads and schema-validates the directory file. A malformed file fails
// loudly at startup rather than silently failing every send later.
func Load(path string, logger *slog.Logger) (Directory, error) {
	if logger == nil {
		logger = slog.Default()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		logger.Error("failed to read directory file", "path", path, "error", err)
		return nil, common.WrapError(err, "read directory file")
	}
	if err := validateDirectoryJSON(raw); err != nil {
		logger.Error("directory file failed schema validation", "path", path, "error", err)
		return nil, err
	}

	var doc struct {
		Locations []Location `json:"locations"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, common.WrapError(err, "unmarshal directory file")
	}

	d := &fileDirectory{locations: make(map[string]Location, len(doc.Locations))}
	for _, loc := range doc.Locations {
		d.locations[loc.ID] = loc
		d.order = append(d.order, loc.ID)
	}
	logger.Info("directory loaded", "path", path, "locations", len(d.order))
	return d, nil
}

// FromLocations builds an in-memory directory, mostly for tests and fixtures.
func FromLocations(locations ...Location) Directory {
	d := &fileDirectory{locations: make(map[string]Location, len(locations))}
	for _, loc := range locations {
		d.locations[loc.ID] = loc
		d.order = append(d.order, loc.ID)
	}
	return d
}

func (d *fileDirectory) IsValidLocation(locationID string) bool {
	_, ok := d.locations[strings.TrimSpace(locationID)]
	return ok
}

func (d *fileDirectory) IsValidStaffForLocation(locationID, staffID string) bool {
	loc, ok := d.locations[strings.TrimSpace(locationID)]
	if !ok {
		return false
	}
	staffID = strings.TrimSpace(staffID)
	for _, s := range loc.Staff {
		if s.ID == staffID {
			return true
		}
	}
	return false
}

func (d *fileDirectory) LocationIDs() []string {
	ids := make([]string, len(d.order))
	copy(ids, d.order)
	return ids
}

// StaffName resolves the display name for a staff id, falling back to the id
// itself when the roster has no name for it.
func (d *fileDirectory) StaffName(locationID, staffID string) string {
	loc, ok := d.locations[strings.TrimSpace(locationID)]
	if !ok {
		return staffID
	}
	for _, s := range loc.Staff {
		if s.ID == staffID && s.Name != "" {
			return s.Name
		}
	}
	return staffID
}
