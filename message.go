package main

const (
	MsgLoadingModel   = "[STARTUP] loading model..."
	MsgStartingStream = "[STARTUP] starting video stream..."
	MsgStatusServer   = "[STARTUP] serving status"
	MsgCPUFeatures    = "[STARTUP] cpu features"

	MsgFinishTime  = "[FINISH] Total Time: %.2f seconds\n"
	MsgFinishSpeed = "[FINISH] Speed: %.2f frames per second\n"
)
