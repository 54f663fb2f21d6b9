package token

import (
	"errors"
	"strconv"
	"strings"

	"github.com/militaernews/tarta/internal/domain/enums"
)

// Decision tokens ride on inline keyboard callback data, which Telegram caps
// at 64 bytes. Format: rep:<ban|dismiss>:<report_id>.

const prefix = "rep"

var ErrBadToken = errors.New("malformed decision token")

type Decision struct {
	ReportID int64
	Outcome  enums.Outcome
}

func Encode(reportID int64, outcome enums.Outcome) string {
	verb := "dismiss"
	if outcome == enums.OutcomeBanned {
		verb = "ban"
	}
	return prefix + ":" + verb + ":" + strconv.FormatInt(reportID, 10)
}

func Decode(data string) (Decision, error) {
	parts := strings.Split(strings.TrimSpace(data), ":")
	if len(parts) != 3 || parts[0] != prefix {
		return Decision{}, ErrBadToken
	}

	var outcome enums.Outcome
	switch parts[1] {
	case "ban":
		outcome = enums.OutcomeBanned
	case "dismiss":
		outcome = enums.OutcomeDismissed
	default:
		return Decision{}, ErrBadToken
	}

	reportID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || reportID <= 0 {
		return Decision{}, ErrBadToken
	}

	return Decision{ReportID: reportID, Outcome: outcome}, nil
}
