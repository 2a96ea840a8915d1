package ont

import (
	"context"
	"iter"
	"regexp"
	"strings"

	"mlwh-sync/core/database"
	"mlwh-sync/core/reconcile"

	"gorm.io/gorm"
)

const (
	colStudyID              = "study_id"
	colSampleName           = "sample_name"
	colSpecimenID           = "specimen_id"
	colBiosampleAccession   = "biosample_accession"
	colBiospecimenAccession = "biospecimen_accession"
	colTaxonID              = "taxon_id"
	colInstrumentModel      = "instrument_model"
	colPipelineID           = "pipeline_id"
	colExperimentName       = "experiment_name"
	colFlowcellID           = "flowcell_id"
	colInstrumentSlot       = "instrument_slot"
	colRunComplete          = "run_complete"
	colQC                   = "lims_qc"
	colQCDate               = "qc_date"
	colTag1                 = "tag1_id"
	colTag2                 = "tag2_id"
	colLibraryID            = "library_id"
	colIrodsRoot            = "irods_root"
	colIrodsPath            = "irods_path"
)

// earlyPrefix marks runs from before experiment names were descriptive.
const earlyPrefix = "ONT-EARLY-"

var numeric = regexp.MustCompile(`^\d+$`)

// Adapter extracts Oxford Nanopore products from the warehouse.
type Adapter struct {
	mapping *reconcile.Mapping
}

// NewAdapter creates a new ONT adapter.
func NewAdapter() *Adapter {
	return &Adapter{mapping: newMapping()}
}

// Platform returns the long-read nanopore platform.
func (a *Adapter) Platform() reconcile.Platform {
	return reconcile.PlatformLongReadNanopore
}

// Extract runs the flowcell query, ordered by experiment, flowcell, slot
// and tag.
func (a *Adapter) Extract(ctx context.Context, db *gorm.DB, studies []string) iter.Seq2[reconcile.RawRow, error] {
	query, args := buildQuery(studies)
	return reconcile.ScanRows(ctx, db, a.Platform(), query, args...)
}

// Mapping returns the ONT column mapping.
func (a *Adapter) Mapping() *reconcile.Mapping {
	return a.mapping
}

// Complete requires a finished run and an experiment name.
func (a *Adapter) Complete(row reconcile.RawRow) (string, bool) {
	if row[colRunComplete] == nil {
		return "run not complete", false
	}
	if _, ok := reconcile.RawString(row, colExperimentName); !ok {
		return "no experiment name", false
	}
	return "", true
}

// Tables lists the warehouse tables and columns the query reads.
func (a *Adapter) Tables() []database.TableSpec {
	return []database.TableSpec{
		{Name: "study", Columns: []string{"id_study_tmp", "id_study_lims", "id_lims"}},
		{Name: "sample", Columns: []string{"id_sample_tmp", "name", "public_name", "accession_number", "donor_id", "taxon_id"}},
		{Name: "oseq_flowcell", Columns: []string{"id_oseq_flowcell_tmp", "id_study_tmp", "id_sample_tmp", "experiment_name", "flowcell_id", "instrument_slot", "pipeline_id_lims", "tag_identifier", "tag2_identifier", "id_library_lims"}},
		{Name: "oseq_product_metrics", Columns: []string{"id_oseq_product", "id_oseq_flowcell_tmp", "device_type", "run_complete", "qc", "qc_date"}},
		{Name: "seq_product_irods_locations", Columns: []string{"id_product", "irods_root_collection", "irods_data_relative_path"}},
	}
}

const baseQuery = `SELECT study.id_study_lims AS study_id
  , sample.name AS sample_name
  , sample.public_name AS specimen_id
  , sample.accession_number AS biosample_accession
  , sample.donor_id AS biospecimen_accession
  , sample.taxon_id AS taxon_id
  , product_metrics.device_type AS instrument_model
  , flowcell.pipeline_id_lims AS pipeline_id
  , flowcell.experiment_name AS experiment_name
  , flowcell.flowcell_id AS flowcell_id
  , flowcell.instrument_slot AS instrument_slot
  , product_metrics.run_complete AS run_complete
  , product_metrics.qc AS lims_qc
  , product_metrics.qc_date AS qc_date
  , flowcell.tag_identifier AS tag1_id
  , flowcell.tag2_identifier AS tag2_id
  , flowcell.id_library_lims AS library_id
  , irods.irods_root_collection AS irods_root
  , irods.irods_data_relative_path AS irods_path
FROM study
JOIN oseq_flowcell AS flowcell
  ON study.id_study_tmp = flowcell.id_study_tmp
JOIN sample
  ON flowcell.id_sample_tmp = sample.id_sample_tmp
JOIN oseq_product_metrics AS product_metrics
  ON flowcell.id_oseq_flowcell_tmp = product_metrics.id_oseq_flowcell_tmp
LEFT JOIN seq_product_irods_locations AS irods
  ON product_metrics.id_oseq_product = irods.id_product
WHERE study.id_lims = 'SQSCP'`

const orderBy = `
ORDER BY flowcell.experiment_name, flowcell.flowcell_id, flowcell.instrument_slot, flowcell.tag_identifier`

func buildQuery(studies []string) (string, []any) {
	var b strings.Builder
	b.WriteString(baseQuery)
	var args []any
	if len(studies) > 0 {
		b.WriteString("\n  AND study.id_study_lims IN ?")
		args = append(args, studies)
	}
	b.WriteString(orderBy)
	return b.String(), args
}

// RunID turns an experiment name into a run id. Purely numeric experiment
// names are prefixed so they cannot collide with other platforms' run ids.
func RunID(experiment string) string {
	if numeric.MatchString(experiment) {
		return earlyPrefix + experiment
	}
	return experiment
}
