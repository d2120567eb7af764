package pipeline

import (
	"uzdata-harvester/lib/telemetry"
)

var tracer = telemetry.Tracer("internal.pipeline")
var meter = telemetry.Meter("internal.pipeline")

const (
	report_catalog_read_page  = "catalog.read-page"
	report_catalog_extract    = "catalog.extract"
	report_item_skip          = "item.skip"
	report_item_structure     = "item.structure"
	report_item_foreign_id    = "item.foreign-marker"
	report_crawl_page_timeout = "crawl.page-timeout"
	report_crawl_sink         = "crawl.sink"
	report_crawl_exhausted    = "crawl.exhausted"
)
