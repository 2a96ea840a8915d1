package illumina

import (
	"mlwh-sync/core/reconcile"
)

func newMapping() *reconcile.Mapping {
	m := &reconcile.Mapping{
		Platform: reconcile.PlatformShortRead,
		Fields: []reconcile.FieldMap{
			{Raw: colStudyID, Field: reconcile.FieldStudyID, Transform: reconcile.TString, Required: true},
			{Raw: colSampleName, Field: reconcile.FieldSampleName, Transform: reconcile.TString, Required: true},
			{Raw: colSpecimenID, Field: reconcile.FieldSpecimenID, Transform: reconcile.TString},
			{Raw: colTaxonID, Field: reconcile.FieldTaxonID, Transform: reconcile.TInt64, Required: true},
			{Raw: colBiosampleAccession, Field: reconcile.FieldBiosampleAccession, Transform: reconcile.TString},
			{Raw: colBiospecimenAccession, Field: reconcile.FieldBiospecimenAccession, Transform: reconcile.TString},
			{Raw: colInstrumentModel, Field: reconcile.FieldInstrumentModel, Transform: reconcile.TString},
			{Raw: colPipelineID, Field: reconcile.FieldPipelineID, Transform: reconcile.TString},
			{Raw: colRunID, Field: reconcile.FieldRunID, Transform: reconcile.TString, Required: true},
			{Raw: colQC, Field: reconcile.FieldLimsQC, Transform: reconcile.TQC},
			{Raw: colQCDate, Field: reconcile.FieldQCDate, Transform: reconcile.TTime},
			{Raw: colTag1, Field: reconcile.FieldTag1ID, Transform: reconcile.TString},
			{Raw: colTag2, Field: reconcile.FieldTag2ID, Transform: reconcile.TString},
			{Raw: colLibraryID, Field: reconcile.FieldLibraryID, Transform: reconcile.TString},
			{Raw: colRunComplete, Field: reconcile.FieldRunComplete, Transform: reconcile.TTime, Required: true},
			{Raw: colIrodsRoot, Field: reconcile.FieldDataRoot, Transform: reconcile.Chain(reconcile.TString, reconcile.TTrimSuffix("/"))},
			{Raw: colIrodsPath, Field: reconcile.FieldDataPath, Transform: reconcile.TString},
		},
	}
	m.NameRoot = func(row reconcile.RawRow) (string, error) {
		return nameRoot(m, row)
	}
	return m
}

// nameRoot builds "{run_id}_{lane}#{tag_index}". The tag suffix is omitted
// for a lane that is not multiplexed.
func nameRoot(m *reconcile.Mapping, row reconcile.RawRow) (string, error) {
	runID, ok := reconcile.RawString(row, colRunID)
	if !ok {
		return "", m.Missing(colRunID)
	}
	lane, ok := reconcile.RawString(row, colPosition)
	if !ok {
		return "", m.Missing(colPosition)
	}
	root := runID + "_" + lane
	if tag, ok := reconcile.RawString(row, colTagIndex); ok {
		root += "#" + tag
	}
	return root, nil
}
