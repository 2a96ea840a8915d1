package pacbio

import (
	"strings"

	"mlwh-sync/core/reconcile"
)

// LibraryTypes maps LIMS pipeline ids onto the library types the quality
// store knows. Unknown pipeline ids pass through unchanged.
var LibraryTypes = map[string]string{
	"PacBio_Ultra_Low_Input":      "PacBio - HiFi (ULI)",
	"PacBio_Ultra_Low_Input_mplx": "PacBio - HiFi (ULI)",
	"Pacbio_HiFi":                 "PacBio - HiFi",
	"Pacbio_HiFi_mplx":            "PacBio - HiFi",
	"Pacbio_IsoSeq":               "PacBio - IsoSeq",
	"PacBio_IsoSeq_mplx":          "PacBio - IsoSeq",
	"Pacbio_Microbial_mplx":       "PacBio - HiFi (Microbial)",
}

// instrumentModel expands the warehouse's "Sequel2" shorthand.
func instrumentModel(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return v, nil
	}
	if rest, found := strings.CutPrefix(s, "Sequel2"); found {
		return "Sequel II" + rest, nil
	}
	return s, nil
}

func newMapping() *reconcile.Mapping {
	m := &reconcile.Mapping{
		Platform: reconcile.PlatformLongReadContinuous,
		Fields: []reconcile.FieldMap{
			{Raw: colStudyID, Field: reconcile.FieldStudyID, Transform: reconcile.TString, Required: true},
			{Raw: colSampleName, Field: reconcile.FieldSampleName, Transform: reconcile.TString, Required: true},
			{Raw: colSpecimenID, Field: reconcile.FieldSpecimenID, Transform: reconcile.TString},
			{Raw: colTaxonID, Field: reconcile.FieldTaxonID, Transform: reconcile.TInt64, Required: true},
			{Raw: colBiosampleAccession, Field: reconcile.FieldBiosampleAccession, Transform: reconcile.TString},
			{Raw: colBiospecimenAccession, Field: reconcile.FieldBiospecimenAccession, Transform: reconcile.TString},
			{Raw: colInstrumentModel, Field: reconcile.FieldInstrumentModel, Transform: reconcile.Chain(reconcile.TString, instrumentModel)},
			{Raw: colPipelineID, Field: reconcile.FieldPipelineID, Transform: reconcile.Chain(reconcile.TString, reconcile.TLookup(LibraryTypes))},
			{Raw: colMovieName, Field: reconcile.FieldRunID, Transform: reconcile.TString, Required: true},
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

// nameRoot builds "{movie_name}#{tag1}#{tag2}". Untagged wells use the bare
// movie name; a second tag without a first is rejected.
func nameRoot(m *reconcile.Mapping, row reconcile.RawRow) (string, error) {
	movie, ok := reconcile.RawString(row, colMovieName)
	if !ok {
		return "", m.Missing(colMovieName)
	}
	tag1, hasTag1 := reconcile.RawString(row, colTag1)
	tag2, hasTag2 := reconcile.RawString(row, colTag2)
	switch {
	case hasTag1 && hasTag2:
		return movie + "#" + tag1 + "#" + tag2, nil
	case hasTag1:
		return movie + "#" + tag1, nil
	case hasTag2:
		return "", m.Invalid(colTag2, "tag2 present without tag1")
	}
	return movie, nil
}
