package views

// SubjectDirectory resolves subject references to display labels, e.g. a
// customer ID to its short name. Implemented against the ERP elsewhere;
// labels are presentation only and never affect state.
type SubjectDirectory interface {
	Labels(refs []string) (map[string]string, error)
}

// NopSubjects is the default SubjectDirectory: no labels.
type NopSubjects struct{}

// Labels returns an empty map.
func (NopSubjects) Labels([]string) (map[string]string, error) {
	return map[string]string{}, nil
}

// EnrichSubjects fills SubjectLabel on rows from the directory. Lookup
// failures leave labels blank; display enrichment never fails a view.
func EnrichSubjects(rows []ItemRow, subjects SubjectDirectory) []ItemRow {
	if subjects == nil {
		return rows
	}

	seen := make(map[string]bool)
	var refs []string
	for _, r := range rows {
		if r.SubjectRef != nil && *r.SubjectRef != "" && !seen[*r.SubjectRef] {
			seen[*r.SubjectRef] = true
			refs = append(refs, *r.SubjectRef)
		}
	}
	if len(refs) == 0 {
		return rows
	}

	labels, err := subjects.Labels(refs)
	if err != nil {
		return rows
	}
	for i := range rows {
		if rows[i].SubjectRef != nil {
			rows[i].SubjectLabel = labels[*rows[i].SubjectRef]
		}
	}
	return rows
}
