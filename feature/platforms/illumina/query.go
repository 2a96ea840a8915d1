package illumina

import "strings"

// baseQuery joins each component product back to its lane metrics and its
// merged product, so the QC verdict and data location come from the product
// that is actually archived.
const baseQuery = `SELECT study.id_study_lims AS study_id
  , sample.name AS sample_name
  , sample.public_name AS specimen_id
  , sample.accession_number AS biosample_accession
  , sample.donor_id AS biospecimen_accession
  , sample.taxon_id AS taxon_id
  , run_lane_metrics.instrument_model AS instrument_model
  , flowcell.pipeline_id_lims AS pipeline_id
  , product_metrics.id_run AS run_id
  , product_metrics.position AS position
  , product_metrics.tag_index AS tag_index
  , run_lane_metrics.run_complete AS run_complete
  , product_metrics.qc AS lims_qc
  , run_lane_metrics.qc_complete AS qc_date
  , flowcell.tag_identifier AS tag1_id
  , flowcell.tag2_identifier AS tag2_id
  , flowcell.id_library_lims AS library_id
  , irods.irods_root_collection AS irods_root
  , irods.irods_data_relative_path AS irods_path
FROM study
JOIN iseq_flowcell AS flowcell
  ON study.id_study_tmp = flowcell.id_study_tmp
JOIN sample
  ON flowcell.id_sample_tmp = sample.id_sample_tmp
JOIN iseq_product_metrics AS component_metrics
  ON flowcell.id_iseq_flowcell_tmp = component_metrics.id_iseq_flowcell_tmp
JOIN iseq_run_lane_metrics AS run_lane_metrics
  ON component_metrics.id_run = run_lane_metrics.id_run
  AND component_metrics.position = run_lane_metrics.position
JOIN iseq_product_components AS components
  ON component_metrics.id_iseq_pr_metrics_tmp = components.id_iseq_pr_component_tmp
  AND components.component_index = 1
JOIN iseq_product_metrics AS product_metrics
  ON components.id_iseq_pr_tmp = product_metrics.id_iseq_pr_metrics_tmp
LEFT JOIN seq_product_irods_locations AS irods
  ON product_metrics.id_iseq_product = irods.id_product
WHERE product_metrics.num_reads IS NOT NULL
  AND study.id_lims = 'SQSCP'`

const orderBy = `
ORDER BY product_metrics.id_run, product_metrics.position, product_metrics.tag_index`

// buildQuery appends the optional study restriction and the ordering.
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
