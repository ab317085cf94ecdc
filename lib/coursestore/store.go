// Package coursestore keeps crawl results in a SQLite database.
package coursestore

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

type Session struct {
	// Date is the local calendar date, YYYY-MM-DD.
	Date     string
	Start    time.Time
	End      time.Time
	Location string
	Room     string
}

type Course struct {
	// Id is the course id, or the detail url for rows without one.
	Id            string
	Title         string
	DetailUrl     string
	Start         time.Time
	End           *time.Time
	LocationText  string
	Available     bool
	Bookable      bool
	Description   string
	DurationText  string
	NumberOfDates int
	LocationName  string
	Room          string
	Address       string
	Sessions      []Session
}

type Crawl struct {
	Location  string
	CrawledAt time.Time
	Courses   []Course
}

type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

// Open opens (or creates) the database file at path and applies the schema.
func Open(path string) (Store, *sql.DB, error) {
	database, err := sql.Open("sqlite", path)
	if err != nil {
		return Store{}, nil, err
	}
	_, err = database.Exec(Schema)
	if err != nil {
		database.Close()
		return Store{}, nil, fmt.Errorf("apply schema: %w", err)
	}
	return NewStore(database), database, nil
}

func unixOrNull(t *time.Time) sql.NullInt64 {
	if t == nil || t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

// Save writes one crawl in a single transaction and returns its id.
func (s Store) Save(ctx context.Context, crawl Crawl) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(
		ctx,
		"insert into crawl(location, crawled_at) values (?, ?)",
		crawl.Location, crawl.CrawledAt.Unix(),
	)
	if err != nil {
		return 0, err
	}
	crawlId, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, c := range crawl.Courses {
		start := c.Start
		_, err = tx.ExecContext(
			ctx,
			`insert into course(
				crawl_id, id, title, detail_url, start_time, end_time, location_text,
				available, bookable, description, duration_text, number_of_dates,
				location_name, room, address
			) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			crawlId, c.Id, c.Title, c.DetailUrl, unixOrNull(&start), unixOrNull(c.End), c.LocationText,
			c.Available, c.Bookable, c.Description, c.DurationText, c.NumberOfDates,
			c.LocationName, c.Room, c.Address,
		)
		if err != nil {
			return 0, fmt.Errorf("insert course %s: %w", c.Id, err)
		}

		for i, session := range c.Sessions {
			_, err = tx.ExecContext(
				ctx,
				`insert into course_session(
					crawl_id, course_id, position, date, start_time, end_time, location, room
				) values (?, ?, ?, ?, ?, ?, ?, ?)`,
				crawlId, c.Id, i, session.Date, session.Start.Unix(), session.End.Unix(),
				session.Location, session.Room,
			)
			if err != nil {
				return 0, fmt.Errorf("insert session %d of %s: %w", i, c.Id, err)
			}
		}
	}

	return crawlId, tx.Commit()
}

// Latest returns the most recent crawl of a location, sql.ErrNoRows if there
// is none. Times come back in loc.
func (s Store) Latest(ctx context.Context, location string, loc *time.Location) (Crawl, error) {
	var crawlId, crawledAt int64
	err := s.db.QueryRowContext(
		ctx,
		"select id, crawled_at from crawl where location = ? order by crawled_at desc, id desc limit 1",
		location,
	).Scan(&crawlId, &crawledAt)
	if err != nil {
		return Crawl{}, err
	}

	crawl := Crawl{
		Location:  location,
		CrawledAt: time.Unix(crawledAt, 0).In(loc),
	}

	rows, err := s.db.QueryContext(
		ctx,
		`select id, title, detail_url, start_time, end_time, location_text, available, bookable,
			description, duration_text, number_of_dates, location_name, room, address
		from course where crawl_id = ? order by rowid`,
		crawlId,
	)
	if err != nil {
		return Crawl{}, err
	}
	defer rows.Close()

	index := map[string]int{}
	for rows.Next() {
		var c Course
		var start, end sql.NullInt64
		err = rows.Scan(
			&c.Id, &c.Title, &c.DetailUrl, &start, &end, &c.LocationText, &c.Available, &c.Bookable,
			&c.Description, &c.DurationText, &c.NumberOfDates, &c.LocationName, &c.Room, &c.Address,
		)
		if err != nil {
			return Crawl{}, err
		}
		if start.Valid {
			c.Start = time.Unix(start.Int64, 0).In(loc)
		}
		if end.Valid {
			t := time.Unix(end.Int64, 0).In(loc)
			c.End = &t
		}
		index[c.Id] = len(crawl.Courses)
		crawl.Courses = append(crawl.Courses, c)
	}
	if err = rows.Err(); err != nil {
		return Crawl{}, err
	}

	sessions, err := s.db.QueryContext(
		ctx,
		`select course_id, date, start_time, end_time, location, room
		from course_session where crawl_id = ? order by course_id, position`,
		crawlId,
	)
	if err != nil {
		return Crawl{}, err
	}
	defer sessions.Close()

	for sessions.Next() {
		var courseId string
		var session Session
		var start, end int64
		err = sessions.Scan(&courseId, &session.Date, &start, &end, &session.Location, &session.Room)
		if err != nil {
			return Crawl{}, err
		}
		session.Start = time.Unix(start, 0).In(loc)
		session.End = time.Unix(end, 0).In(loc)
		i, ok := index[courseId]
		if !ok {
			continue
		}
		crawl.Courses[i].Sessions = append(crawl.Courses[i].Sessions, session)
	}
	return crawl, sessions.Err()
}
