package workflow

import "clipforge/internal/queue"

// ConfigureStages registers the concrete stage handlers the workflow will
// run. Human review sits between the scorer and the publisher: the pipeline
// lane ends at pending_approval, the publish lane starts at approved.
func (m *Manager) ConfigureStages(set StageSet) {
	pipeline := &laneState{kind: lanePipeline, name: "pipeline"}
	publish := &laneState{kind: lanePublish, name: "publish"}

	if set.Crawler != nil {
		pipeline.stages = append(pipeline.stages, pipelineStage{
			name:             "crawl",
			handler:          set.Crawler,
			startStatuses:    []queue.Status{queue.StatusPending},
			processingStatus: queue.StatusCrawling,
			doneStatus:       queue.StatusCrawled,
		})
	}
	if set.Transcriber != nil {
		pipeline.stages = append(pipeline.stages, pipelineStage{
			name:             "transcribe",
			handler:          set.Transcriber,
			startStatuses:    []queue.Status{queue.StatusCrawled},
			processingStatus: queue.StatusTranscribing,
			doneStatus:       queue.StatusTranscribed,
		})
	}
	if set.Analyzer != nil {
		pipeline.stages = append(pipeline.stages, pipelineStage{
			name:             "analyze",
			handler:          set.Analyzer,
			startStatuses:    []queue.Status{queue.StatusTranscribed},
			processingStatus: queue.StatusAnalyzing,
			doneStatus:       queue.StatusAnalyzed,
		})
	}
	if set.Editor != nil {
		pipeline.stages = append(pipeline.stages, pipelineStage{
			name:             "edit",
			handler:          set.Editor,
			startStatuses:    []queue.Status{queue.StatusAnalyzed, queue.StatusNeedsEdit},
			processingStatus: queue.StatusEditing,
			doneStatus:       queue.StatusEdited,
		})
	}
	if set.Scorer != nil {
		// The scorer routes to pending_approval or rejected itself; the
		// done status only applies when the handler leaves the job in
		// processing.
		pipeline.stages = append(pipeline.stages, pipelineStage{
			name:             "score",
			handler:          set.Scorer,
			startStatuses:    []queue.Status{queue.StatusEdited},
			processingStatus: queue.StatusScoring,
			doneStatus:       queue.StatusPendingApproval,
		})
	}
	if set.Publisher != nil {
		publish.stages = append(publish.stages, pipelineStage{
			name:             "publish",
			handler:          set.Publisher,
			startStatuses:    []queue.Status{queue.StatusApproved},
			processingStatus: queue.StatusPublishing,
			doneStatus:       queue.StatusPublished,
		})
	}

	lanes := make(map[laneKind]*laneState)
	order := make([]laneKind, 0, 2)
	if len(pipeline.stages) > 0 {
		pipeline.finalize()
		lanes[pipeline.kind] = pipeline
		order = append(order, pipeline.kind)
	}
	if len(publish.stages) > 0 {
		publish.finalize()
		lanes[publish.kind] = publish
		order = append(order, publish.kind)
	}

	m.mu.Lock()
	m.lanes = lanes
	m.laneOrder = order
	m.mu.Unlock()
}
