package analyzer

import (
	"fmt"

	"github.com/ccollicutt/sanreport/pkg/config"
	"github.com/ccollicutt/sanreport/pkg/parser"
)

// JobsFromConfig lists the jobs a configuration describes: one per package
// directory under log_base, then each entry of jobs with its globs expanded.
func JobsFromConfig(cfg *config.Config) ([]Job, error) {
	var jobs []Job

	if cfg.LogBase != "" {
		logs, err := parser.DiscoverJobs(cfg.LogBase, cfg.LogFileName)
		if err != nil {
			return nil, err
		}
		for _, l := range logs {
			jobs = append(jobs, Job{Package: l.Package, Sources: []string{l.Path}})
		}
	}

	for _, jc := range cfg.Jobs {
		files, err := parser.ExpandGlobs(jc.LogSources)
		if err != nil {
			return nil, fmt.Errorf("package %s: %w", jc.Package, err)
		}
		jobs = append(jobs, Job{Package: jc.Package, Sources: files})
	}

	return jobs, nil
}
