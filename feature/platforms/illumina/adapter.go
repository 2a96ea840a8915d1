package illumina

import (
	"context"
	"iter"

	"mlwh-sync/core/database"
	"mlwh-sync/core/reconcile"

	"gorm.io/gorm"
)

// column aliases selected by the warehouse query.
const (
	colStudyID              = "study_id"
	colSampleName           = "sample_name"
	colSpecimenID           = "specimen_id"
	colBiosampleAccession   = "biosample_accession"
	colBiospecimenAccession = "biospecimen_accession"
	colTaxonID              = "taxon_id"
	colInstrumentModel      = "instrument_model"
	colPipelineID           = "pipeline_id"
	colRunID                = "run_id"
	colPosition             = "position"
	colTagIndex             = "tag_index"
	colRunComplete          = "run_complete"
	colQC                   = "lims_qc"
	colQCDate               = "qc_date"
	colTag1                 = "tag1_id"
	colTag2                 = "tag2_id"
	colLibraryID            = "library_id"
	colIrodsRoot            = "irods_root"
	colIrodsPath            = "irods_path"
)

// Adapter extracts Illumina short-read products from the warehouse.
type Adapter struct {
	mapping *reconcile.Mapping
}

// NewAdapter creates a new Illumina adapter.
func NewAdapter() *Adapter {
	return &Adapter{mapping: newMapping()}
}

// Platform returns the short-read platform.
func (a *Adapter) Platform() reconcile.Platform {
	return reconcile.PlatformShortRead
}

// Extract runs the product query, ordered by run, lane and tag.
func (a *Adapter) Extract(ctx context.Context, db *gorm.DB, studies []string) iter.Seq2[reconcile.RawRow, error] {
	query, args := buildQuery(studies)
	return reconcile.ScanRows(ctx, db, a.Platform(), query, args...)
}

// Mapping returns the Illumina column mapping.
func (a *Adapter) Mapping() *reconcile.Mapping {
	return a.mapping
}

// Complete requires a finished run and a completed lane QC.
func (a *Adapter) Complete(row reconcile.RawRow) (string, bool) {
	if row[colRunComplete] == nil {
		return "run not complete", false
	}
	if row[colQCDate] == nil {
		return "lane QC not complete", false
	}
	return "", true
}

// Tables lists the warehouse tables and columns the query reads.
func (a *Adapter) Tables() []database.TableSpec {
	return []database.TableSpec{
		{Name: "study", Columns: []string{"id_study_tmp", "id_study_lims", "id_lims"}},
		{Name: "sample", Columns: []string{"id_sample_tmp", "name", "public_name", "accession_number", "donor_id", "taxon_id"}},
		{Name: "iseq_flowcell", Columns: []string{"id_iseq_flowcell_tmp", "id_study_tmp", "id_sample_tmp", "pipeline_id_lims", "tag_identifier", "tag2_identifier", "id_library_lims"}},
		{Name: "iseq_product_metrics", Columns: []string{"id_iseq_pr_metrics_tmp", "id_iseq_flowcell_tmp", "id_iseq_product", "id_run", "position", "tag_index", "qc", "num_reads"}},
		{Name: "iseq_run_lane_metrics", Columns: []string{"id_run", "position", "instrument_model", "run_complete", "qc_complete"}},
		{Name: "iseq_product_components", Columns: []string{"id_iseq_pr_tmp", "id_iseq_pr_component_tmp", "component_index"}},
		{Name: "seq_product_irods_locations", Columns: []string{"id_product", "irods_root_collection", "irods_data_relative_path"}},
	}
}
