package api

import (
	"errors"
	"shrinkurl/internal/db"
	"shrinkurl/internal/shortcode"
	"sync"

	"github.com/jinzhu/gorm"
	"github.com/rs/zerolog/log"
)

// maxInsertAttempts bounds re-allocation when another writer stored the same
// code between our snapshot and our insert.
const maxInsertAttempts = 5

// reservedPaths are top-level routes that a short code must never shadow.
var reservedPaths = []string{"generate", "links", "health", "status"}

// errAllocationConflict means every insert attempt lost a uniqueness race.
var errAllocationConflict = errors.New("could not store a unique short code")

// allocMu serializes snapshot, allocate and insert within this process. The
// unique index on short_code arbitrates between processes.
var allocMu sync.Mutex

// createLinkWithCode allocates the next free short code for link and stores it.
func createLinkWithCode(gen *shortcode.Generator, link *db.Link) error {
	length := gen.Alphabet().Length()

	allocMu.Lock()
	defer allocMu.Unlock()

	for attempt := 1; attempt <= maxInsertAttempts; attempt++ {
		last, err := db.GetLastShortCode(length)
		if err != nil {
			return err
		}
		issued, err := issuedSnapshot(gen, length)
		if err != nil {
			return err
		}

		code, err := gen.Allocate(last, issued)
		if err != nil {
			return err
		}

		link.Model = gorm.Model{}
		link.ShortCode = code
		err = db.CreateLink(link)
		if errors.Is(err, db.ErrDuplicateShortCode) {
			log.Warn().Str("short_code", code).Int("attempt", attempt).Msg("short code taken by a concurrent writer, retrying")
			continue
		}
		return err
	}
	return errAllocationConflict
}

func issuedSnapshot(gen *shortcode.Generator, length int) (shortcode.CodeSet, error) {
	codes, err := db.GetShortCodes(length)
	if err != nil {
		return nil, err
	}
	alpha := gen.Alphabet()
	issued := make(shortcode.CodeSet, len(codes)+len(reservedPaths))
	// Codes left by an earlier alphabet of the same length are not in the
	// current space and must not count against it.
	for _, code := range append(codes, reservedPaths...) {
		if alpha.Valid(code) {
			issued.Add(code)
		}
	}
	return issued, nil
}
