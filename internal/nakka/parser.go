package nakka

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type Tournament struct {
	Title   string
	Matches []MatchSummary
}

type MatchSummary struct {
	ID          string
	Player1     string
	Player2     string
	Player1Legs int
	Player2Legs int
}

type MatchDetail struct {
	Player1       string
	Player2       string
	StartingScore int
	Legs          []Leg
}

type Leg struct {
	Number int
	Rounds []Round
}

// Round mirrors one scoreboard row: both players' visit score and
// score-to-go for that round.
type Round struct {
	Number       int
	Player1Score int
	Player1ToGo  int
	Player2Score int
	Player2ToGo  int
}

// ParseTournament extracts the title and match list from a tournament
// overview page.
func ParseTournament(html []byte) (*Tournament, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse tournament page: %w", err)
	}

	t := &Tournament{
		Title: strings.TrimSpace(doc.Find("#tournament_title").First().Text()),
	}

	doc.Find("tr.match_row").Each(func(i int, row *goquery.Selection) {
		mid, ok := row.Attr("data-mid")
		if !ok || mid == "" {
			return
		}
		t.Matches = append(t.Matches, MatchSummary{
			ID:          mid,
			Player1:     strings.TrimSpace(row.Find("td.p1_name").Text()),
			Player2:     strings.TrimSpace(row.Find("td.p2_name").Text()),
			Player1Legs: intText(row.Find("td.p1_legs")),
			Player2Legs: intText(row.Find("td.p2_legs")),
		})
	})

	if t.Title == "" && len(t.Matches) == 0 {
		return nil, fmt.Errorf("page does not look like a tournament overview")
	}
	return t, nil
}

// ParseMatch extracts the leg-by-leg scoreboard of one match page.
func ParseMatch(html []byte) (*MatchDetail, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse match page: %w", err)
	}

	d := &MatchDetail{
		Player1:       strings.TrimSpace(doc.Find("#p1_name").First().Text()),
		Player2:       strings.TrimSpace(doc.Find("#p2_name").First().Text()),
		StartingScore: intText(doc.Find("#start_score").First()),
	}
	if d.Player1 == "" || d.Player2 == "" {
		return nil, fmt.Errorf("page does not look like a match scoreboard")
	}
	if d.StartingScore == 0 {
		d.StartingScore = 501
	}

	doc.Find("table.leg").Each(func(i int, legSel *goquery.Selection) {
		leg := Leg{Number: i + 1}
		if n, ok := legSel.Attr("data-leg"); ok {
			if v, err := strconv.Atoi(n); err == nil {
				leg.Number = v
			}
		}

		legSel.Find("tr.round").Each(func(j int, row *goquery.Selection) {
			round := Round{
				Number:       j + 1,
				Player1Score: intText(row.Find("td.p1_score")),
				Player1ToGo:  intText(row.Find("td.p1_togo")),
				Player2Score: intText(row.Find("td.p2_score")),
				Player2ToGo:  intText(row.Find("td.p2_togo")),
			}
			if n := intText(row.Find("td.round_no")); n > 0 {
				round.Number = n
			}
			leg.Rounds = append(leg.Rounds, round)
		})

		if len(leg.Rounds) > 0 {
			d.Legs = append(d.Legs, leg)
		}
	})

	return d, nil
}

func intText(sel *goquery.Selection) int {
	v, err := strconv.Atoi(strings.TrimSpace(sel.First().Text()))
	if err != nil {
		return 0
	}
	return v
}
