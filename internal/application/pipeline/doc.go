// Package pipeline orchestrates the batch stages: loading an extract into
// staging, auditing it, rebuilding the dimensional tables and exporting KPIs.
//
// Each service takes its repositories and a *zap.Logger explicitly. The
// Runner sequences them under one recorded ingestion.Run.
package pipeline
