package store

import (
	"context"
	"encoding/csv"
	"io"
	"os"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pluzgi/chatbot-study/internal/model"
)

// ReadParticipantsCSV decodes a participant export. The header must carry
// the csv tags of model.Participant; unknown columns are ignored and empty
// cells decode to nil for the nullable measures.
func ReadParticipantsCSV(path string) ([]model.Participant, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "store: open csv %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	dec, err := csvutil.NewDecoder(r)
	if err != nil {
		return nil, eris.Wrapf(err, "store: read csv header %s", path)
	}

	var out []model.Participant
	for {
		var p model.Participant
		if err := dec.Decode(&p); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrapf(err, "store: decode csv record %d", len(out)+1)
		}
		out = append(out, p)
	}
	return out, nil
}

// ImportCSV loads a participant export into the store and returns the
// batch id with the number of imported records.
func ImportCSV(ctx context.Context, s ParticipantStore, path string, ai bool) (string, int, error) {
	records, err := ReadParticipantsCSV(path)
	if err != nil {
		return "", 0, err
	}
	if len(records) == 0 {
		return "", 0, eris.Errorf("store: csv %s holds no records", path)
	}

	batchID, err := s.ImportParticipants(ctx, records, ai)
	if err != nil {
		return "", 0, err
	}

	zap.L().Info("store: csv imported",
		zap.String("path", path),
		zap.String("batch_id", batchID),
		zap.Int("records", len(records)))
	return batchID, len(records), nil
}
