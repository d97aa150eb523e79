package aggregate

// Merge folds other into s as if other's lines had been appended to s's stream.
// Counters add, sets union, extrema combine. The first Init wins. Error samples from other keep
// their relative order, renumbered after s's lines, up to s's sample limit. other is not modified.
func (s *State) Merge(other *State) {
	offset := s.totalLines

	s.totalLines += other.totalLines
	if other.totalLines > 0 {
		s.lastLine = other.lastLine
	}

	if s.init == nil && other.init != nil {
		initCopy := *other.init
		s.init = &initCopy
		s.initLine = other.initLine + offset
	}

	s.blocks += other.blocks
	s.cacheHits += other.cacheHits
	addCounts(s.parity, other.parity)
	union(s.slots, other.slots)
	union(s.codeAddrs, other.codeAddrs)

	if other.hasRecomp {
		s.observeRecomp(other.recompMin, other.recompMax)
	}

	addCounts(s.xdir, other.xdir)
	union(s.fbzModes, other.fbzModes)
	union(s.colorPaths, other.colorPaths)
	union(s.alphaModes, other.alphaModes)
	union(s.texModes, other.texModes)
	union(s.fogModes, other.fogModes)
	union(s.configs, other.configs)

	s.fallbackDisabled += other.fallbackDisabled
	s.fallbackEmit += other.fallbackEmit
	s.rejectReasons.WXWriteEnableFailed += other.rejectReasons.WXWriteEnableFailed
	s.rejectReasons.WXExecEnableFailed += other.rejectReasons.WXExecEnableFailed
	s.rejectReasons.EmitOverflow += other.rejectReasons.EmitOverflow
	s.rejectReasons.Other += other.rejectReasons.Other

	s.executes += other.executes
	union(s.scanlines, other.scanlines)

	s.posts += other.posts
	s.pixelsTotal += other.pixelsTotal
	s.pixelsMax = max(s.pixelsMax, other.pixelsMax)
	addCounts(s.pixelCounts, other.pixelCounts)

	for i := range s.histogram {
		s.histogram[i] += other.histogram[i]
	}

	s.iterators.NegativeIR += other.iterators.NegativeIR
	s.iterators.NegativeIG += other.iterators.NegativeIG
	s.iterators.NegativeIB += other.iterators.NegativeIB
	s.iterators.NegativeIA += other.iterators.NegativeIA
	union(s.activeZ, other.activeZ)

	s.pixelLines += other.pixelLines
	union(s.pixels, other.pixels)

	s.errorCount += other.errorCount

	for _, e := range other.errors {
		if len(s.errors) >= s.errorSamples {
			break
		}

		e.Number += offset
		s.errors = append(s.errors, e)
	}

	s.interleaved += other.interleaved
	s.jitWarnings += other.jitWarnings

	s.mismatches += other.mismatches
	s.pixelsDiffer += other.pixelsDiffer

	for _, g := range other.byFog {
		s.byFog = bumpGroup(s.byFog, g, g.Count, g.PixelsDiffer, maxFogModeGroups)
	}

	for _, g := range other.byConfig {
		s.byConfig = bumpGroup(s.byConfig, g, g.Count, g.PixelsDiffer, maxConfigGroups)
	}

	s.diffsParsed += other.diffsParsed

	for i := range s.diffMagnitude {
		s.diffMagnitude[i] += other.diffMagnitude[i]
	}

	s.maxAbsDR = max(s.maxAbsDR, other.maxAbsDR)
	s.maxAbsDG = max(s.maxAbsDG, other.maxAbsDG)
	s.maxAbsDB = max(s.maxAbsDB, other.maxAbsDB)
}

func union[K comparable](dst, src map[K]struct{}) {
	for k := range src {
		dst[k] = struct{}{}
	}
}

func addCounts[K comparable](dst, src map[K]uint64) {
	for k, v := range src {
		dst[k] += v
	}
}
