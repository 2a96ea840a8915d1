package ont

import (
	"mlwh-sync/core/reconcile"
)

// runID is the run_id transform applied to the experiment name.
func runID(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return v, nil
	}
	return RunID(s), nil
}

func newMapping() *reconcile.Mapping {
	m := &reconcile.Mapping{
		Platform: reconcile.PlatformLongReadNanopore,
		Fields: []reconcile.FieldMap{
			{Raw: colStudyID, Field: reconcile.FieldStudyID, Transform: reconcile.TString, Required: true},
			{Raw: colSampleName, Field: reconcile.FieldSampleName, Transform: reconcile.TString, Required: true},
			{Raw: colSpecimenID, Field: reconcile.FieldSpecimenID, Transform: reconcile.TString},
			{Raw: colTaxonID, Field: reconcile.FieldTaxonID, Transform: reconcile.TInt64, Required: true},
			{Raw: colBiosampleAccession, Field: reconcile.FieldBiosampleAccession, Transform: reconcile.TString},
			{Raw: colBiospecimenAccession, Field: reconcile.FieldBiospecimenAccession, Transform: reconcile.TString},
			{Raw: colInstrumentModel, Field: reconcile.FieldInstrumentModel, Transform: reconcile.TString},
			{Raw: colPipelineID, Field: reconcile.FieldPipelineID, Transform: reconcile.TString},
			{Raw: colExperimentName, Field: reconcile.FieldRunID, Transform: reconcile.Chain(reconcile.TString, runID), Required: true},
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

// nameRoot builds "{run_id}#{flowcell_id}#{instrument_slot}#{tag1}". The
// slot and tag suffixes are each omitted when absent.
func nameRoot(m *reconcile.Mapping, row reconcile.RawRow) (string, error) {
	experiment, ok := reconcile.RawString(row, colExperimentName)
	if !ok {
		return "", m.Missing(colExperimentName)
	}
	flowcell, ok := reconcile.RawString(row, colFlowcellID)
	if !ok {
		return "", m.Missing(colFlowcellID)
	}
	root := RunID(experiment) + "#" + flowcell
	if slot, ok := reconcile.RawString(row, colInstrumentSlot); ok {
		root += "#" + slot
	}
	if tag, ok := reconcile.RawString(row, colTag1); ok {
		root += "#" + tag
	}
	return root, nil
}
