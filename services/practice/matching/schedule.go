// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package matching is the pure note-matching core: schedule building, the
// greedy per-note matcher, and the end-of-session scorer. It has no
// dependencies beyond datatypes and is shared by every hosting path, so the
// timing constants cannot diverge between the in-process and the remote
// actor deployment.
package matching

import (
	"github.com/jinterlante1206/AleutianPractice/services/practice/datatypes"
)

// BuildSchedule turns the raw note list of a piece into the schedule a
// session matches against.
//
// Notes outside the inclusive measure range are dropped, then notes not
// admitted by the hand filter. The retained notes are rebased so the first
// one starts at 0, and every start time and duration is scaled by
// 100/tempoPercent (slower tempo stretches the schedule). Input order is
// preserved and an empty result is valid; this function never errors.
func BuildSchedule(notes []datatypes.ExpectedNote, measureStart, measureEnd int,
	hand datatypes.Hand, tempoPercent int) []datatypes.ExpectedNote {

	if tempoPercent <= 0 {
		tempoPercent = 100
	}
	scale := 100.0 / float64(tempoPercent)

	schedule := make([]datatypes.ExpectedNote, 0, len(notes))
	for _, n := range notes {
		if n.Measure < measureStart || n.Measure > measureEnd {
			continue
		}
		if !hand.Admits(n.Hand) {
			continue
		}
		schedule = append(schedule, n)
	}
	if len(schedule) == 0 {
		return schedule
	}

	origin := schedule[0].StartTime
	for i := range schedule {
		schedule[i].StartTime = (schedule[i].StartTime - origin) * scale
		schedule[i].Duration = schedule[i].Duration * scale
	}
	return schedule
}
