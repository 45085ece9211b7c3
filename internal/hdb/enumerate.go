package hdb

// EnumerateLocal expands raw local paths into scan targets.
// A file path yields itself. A directory yields its regular files, descending
// into subdirectories only when recursive is set. Paths that do not exist are
// reported, skipped and counted as failures.
func (s *HDBService) EnumerateLocal(rawPaths []string, origin string, recursive bool) Resolution {
	var res Resolution
	now := s.clock.Now()

	for _, raw := range rawPaths {
		p, err := s.fsmgr.Resolve(raw)
		if err != nil {
			s.logger.Warn("target not found, skipping", "path", raw, "error", err)
			res.Failures++
			continue
		}

		if !p.IsDir() {
			res.Targets = append(res.Targets, ScanTarget{Path: p.String(), Origin: origin, RetrievedAt: now})
			continue
		}

		files, err := s.fsmgr.FindFiles(p, recursive)
		if err != nil {
			s.logger.Warn("cannot list directory, skipping", "path", p.String(), "error", err)
			res.Failures++
			continue
		}
		for _, f := range files {
			res.Targets = append(res.Targets, ScanTarget{Path: f.String(), Origin: origin, RetrievedAt: now})
		}
		s.logger.Debug("directory enumerated", "path", p.String(), "files", len(files), "recursive", recursive)
	}

	return res
}
