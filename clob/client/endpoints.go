package client

// CLOB REST 端点
const (
	EndpointGetMidpoint = "/midpoint"
	EndpointGetTickSize = "/tick-size"
	EndpointGetNegRisk  = "/neg-risk"
	EndpointPostOrder   = "/order"
)
