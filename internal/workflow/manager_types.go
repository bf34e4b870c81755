package workflow

import (
	"log/slog"

	"clipforge/internal/queue"
	"clipforge/internal/stage"
)

// StageSet bundles the concrete workflow handlers the manager orchestrates.
type StageSet struct {
	Crawler     stage.Handler
	Transcriber stage.Handler
	Analyzer    stage.Handler
	Editor      stage.Handler
	Scorer      stage.Handler
	Publisher   stage.Handler
}

// pipelineStage maps start statuses to a handler. Most stages have a single
// start status; the editor also picks up jobs a reviewer sent back.
type pipelineStage struct {
	name             string
	handler          stage.Handler
	startStatuses    []queue.Status
	processingStatus queue.Status
	doneStatus       queue.Status
}

type laneKind string

const (
	lanePipeline laneKind = "pipeline"
	lanePublish  laneKind = "publish"
)

type laneState struct {
	kind               laneKind
	name               string
	stages             []pipelineStage
	statusOrder        []queue.Status
	stageByStart       map[queue.Status]pipelineStage
	processingStatuses []queue.Status
	logger             *slog.Logger
	runReclaimer       bool
}

func (l *laneState) finalize() {
	if l == nil {
		return
	}
	l.stageByStart = make(map[queue.Status]pipelineStage, len(l.stages))
	l.statusOrder = l.statusOrder[:0]
	seenProcessing := make(map[queue.Status]struct{})
	for _, stg := range l.stages {
		for _, start := range stg.startStatuses {
			l.stageByStart[start] = stg
			l.statusOrder = append(l.statusOrder, start)
		}
		if stg.processingStatus != "" {
			if _, ok := seenProcessing[stg.processingStatus]; !ok {
				l.processingStatuses = append(l.processingStatuses, stg.processingStatus)
				seenProcessing[stg.processingStatus] = struct{}{}
			}
		}
	}
	l.runReclaimer = len(l.processingStatuses) > 0
}

func (l *laneState) stageForStatus(status queue.Status) (pipelineStage, bool) {
	if l == nil {
		return pipelineStage{}, false
	}
	stg, ok := l.stageByStart[status]
	return stg, ok
}
