package dsv

// selection returns the alternating read/skip plan implied by the options,
// or nil to read everything.
//
//	SkipRecords [2, 3, 1]       read 2, skip 3, read 1
//	SkipRecords [0, 3, 2]       skip 3, read 2
//	StartRecord 3, MaxRecords 2 skip 3, read 2
//	StartRecord 3               skip 3, read the rest
//	MaxRecords 2                read 2
func (o Options) selection() []int {
	switch {
	case len(o.SkipRecords) > 0:
		return append([]int(nil), o.SkipRecords...)
	case o.StartRecord > 0 && o.MaxRecords > 0:
		return []int{0, o.StartRecord, o.MaxRecords}
	case o.StartRecord > 0:
		return []int{0, o.StartRecord}
	case o.MaxRecords > 0:
		return []int{o.MaxRecords}
	}
	return nil
}

// readSelected reads the records picked by the options. When the plan
// ends on a skip, the rest of the input is read.
func readSelected(r *Reader, opts Options) ([]Record, error) {
	plan := opts.selection()
	if plan == nil {
		return r.ReadBatch(0)
	}

	reading := true
	if plan[0] == 0 {
		plan = plan[1:]
		reading = false
	}
	var out []Record
	for _, n := range plan {
		if n == 0 {
			// a zero count would drain the input
			reading = !reading
			continue
		}
		b, err := r.Batch(n, modeFor(reading))
		if err != nil {
			return nil, err
		}
		out = append(out, b.Records...)
		reading = !reading
		if b.Complete {
			return out, nil
		}
	}
	if reading {
		rest, err := r.ReadBatch(0)
		if err != nil {
			return nil, err
		}
		out = append(out, rest...)
	}
	return out, nil
}

func modeFor(reading bool) ReadMode {
	if reading {
		return ReadNormal
	}
	return ReadSkip
}
