package kickoff

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const titlesTimeout = 5 * time.Second

// Programme is what is on air on a channel right now
type Programme struct {
	Title    string
	Subtitle string
}

// TitlesSource looks up programmes which are on air on given channels
type TitlesSource interface {
	PlayingTitles(ctx context.Context, chanIDs []int) (map[int]Programme, error)
}

// MythTVTitles reads programme guide of MythTV backend
type MythTVTitles struct {
	db *sql.DB
}

// NewMythTVTitles opens MythTV database. Connection itself is established lazily on the first query
func NewMythTVTitles(dsn string) (*MythTVTitles, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "Can't open MythTV database")
	}
	return &MythTVTitles{db: db}, nil
}

// PlayingTitles implements TitlesSource
func (titles *MythTVTitles) PlayingTitles(ctx context.Context, chanIDs []int) (map[int]Programme, error) {
	programmes := make(map[int]Programme, len(chanIDs))
	if len(chanIDs) == 0 {
		return programmes, nil
	}
	args := make([]any, 0, len(chanIDs))
	for _, chanID := range chanIDs {
		args = append(args, chanID)
	}
	query := "SELECT chanid, title, subtitle FROM program " +
		"WHERE chanid IN (" + strings.TrimSuffix(strings.Repeat("?,", len(chanIDs)), ",") + ") " +
		"AND starttime <= UTC_TIMESTAMP() AND endtime >= UTC_TIMESTAMP()"
	rows, err := titles.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "Can't query programmes")
	}
	defer rows.Close()
	for rows.Next() {
		var chanID int
		programme := Programme{}
		if err := rows.Scan(&chanID, &programme.Title, &programme.Subtitle); err != nil {
			return nil, errors.Wrap(err, "Can't scan programme")
		}
		programmes[chanID] = programme
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "Can't read programmes")
	}
	return programmes, nil
}

// Close closes MythTV database
func (titles *MythTVTitles) Close() error {
	return titles.db.Close()
}

// fillPlayingTitles sets titles on streams bound to a channel. Streams are left untouched on failure
func fillPlayingTitles(ctx context.Context, source TitlesSource, streams []Stream) {
	if source == nil {
		return
	}
	chanIDs := []int{}
	for _, stream := range streams {
		if stream.MythChanID != 0 {
			chanIDs = append(chanIDs, stream.MythChanID)
		}
	}
	if len(chanIDs) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, titlesTimeout)
	defer cancel()
	programmes, err := source.PlayingTitles(ctx, chanIDs)
	if err != nil {
		log.Error().Err(err).Str("scope", SCOPE_TITLES).Str("event", EVENT_TITLES_FETCH).Ints("chan_ids", chanIDs).Msg("Can't fetch playing titles")
		return
	}
	for i := range streams {
		if programme, ok := programmes[streams[i].MythChanID]; ok && streams[i].MythChanID != 0 {
			streams[i].PlayingTitle = programme.Title
			streams[i].PlayingSubtitle = programme.Subtitle
		}
	}
}
