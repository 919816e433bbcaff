package protocol

import (
	"fmt"
	"reflect"
)

// Message is implemented by the request and response types of each api.
// Values passed to the functions of this package must be pointers to the
// struct types installed with Register.
type Message interface {
	ApiKey() ApiKey
}

//go:generate stringer -type=ApiKey
type ApiKey int16

const (
	Produce                     ApiKey = 0
	Fetch                       ApiKey = 1
	ListOffsets                 ApiKey = 2
	Metadata                    ApiKey = 3
	LeaderAndIsr                ApiKey = 4
	StopReplica                 ApiKey = 5
	UpdateMetadata              ApiKey = 6
	ControlledShutdown          ApiKey = 7
	OffsetCommit                ApiKey = 8
	OffsetFetch                 ApiKey = 9
	FindCoordinator             ApiKey = 10
	JoinGroup                   ApiKey = 11
	Heartbeat                   ApiKey = 12
	LeaveGroup                  ApiKey = 13
	SyncGroup                   ApiKey = 14
	DescribeGroups              ApiKey = 15
	ListGroups                  ApiKey = 16
	SaslHandshake               ApiKey = 17
	ApiVersions                 ApiKey = 18
	CreateTopics                ApiKey = 19
	DeleteTopics                ApiKey = 20
	DeleteRecords               ApiKey = 21
	InitProducerId              ApiKey = 22
	OffsetForLeaderEpoch        ApiKey = 23
	AddPartitionsToTxn          ApiKey = 24
	AddOffsetsToTxn             ApiKey = 25
	EndTxn                      ApiKey = 26
	WriteTxnMarkers             ApiKey = 27
	TxnOffsetCommit             ApiKey = 28
	DescribeAcls                ApiKey = 29
	CreateAcls                  ApiKey = 30
	DeleteAcls                  ApiKey = 31
	DescribeConfigs             ApiKey = 32
	AlterConfigs                ApiKey = 33
	AlterReplicaLogDirs         ApiKey = 34
	DescribeLogDirs             ApiKey = 35
	SaslAuthenticate            ApiKey = 36
	CreatePartitions            ApiKey = 37
	CreateDelegationToken       ApiKey = 38
	RenewDelegationToken        ApiKey = 39
	ExpireDelegationToken       ApiKey = 40
	DescribeDelegationToken     ApiKey = 41
	DeleteGroups                ApiKey = 42
	ElectLeaders                ApiKey = 43
	IncrementalAlterConfigs     ApiKey = 44
	AlterPartitionReassignments ApiKey = 45
	ListPartitionReassignments  ApiKey = 46
	OffsetDelete                ApiKey = 47

	numApis = 48
)

// MinVersion returns the lowest version registered for k, or -1 when no
// message types were installed for the api.
func (k ApiKey) MinVersion() int16 {
	if a := k.api(); a != nil {
		return a.minVersion
	}
	return -1
}

// MaxVersion returns the highest version registered for k, or -1 when no
// message types were installed for the api.
func (k ApiKey) MaxVersion() int16 {
	if a := k.api(); a != nil {
		return a.maxVersion()
	}
	return -1
}

// Versions returns the versions programs can use with k in ascending order.
func (k ApiKey) Versions() []int16 {
	a := k.api()
	if a == nil {
		return nil
	}
	versions := make([]int16, 0, len(a.requests))
	for v := a.minVersion; v <= a.maxVersion(); v++ {
		versions = append(versions, v)
	}
	return versions
}

// CheckVersion returns an error matching ErrUnsupportedVersion when version is
// outside of the range registered for k, or ErrUnsupportedAPI when nothing
// was registered for it.
func (k ApiKey) CheckVersion(version int16) error {
	_, err := k.lookup(version)
	return err
}

func (k ApiKey) api() *api {
	if k < 0 || k >= numApis {
		return nil
	}
	return registry[k]
}

func (k ApiKey) lookup(version int16) (*api, error) {
	a := k.api()
	if a == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAPI, k)
	}
	if version < a.minVersion || version > a.maxVersion() {
		return nil, &VersionError{
			ApiKey:     k,
			Version:    version,
			MinVersion: a.minVersion,
			MaxVersion: a.maxVersion(),
		}
	}
	return a, nil
}

// api holds the compiled layouts of a request/response pair, indexed by
// version-minVersion.
type api struct {
	minVersion int16
	requests   []*schema
	responses  []*schema
}

func (a *api) maxVersion() int16 {
	return a.minVersion + int16(len(a.requests)) - 1
}

func (a *api) request(version int16) *schema { return a.requests[version-a.minVersion] }

func (a *api) response(version int16) *schema { return a.responses[version-a.minVersion] }

// schemaOf returns the layout matching the dynamic type of msg, whether it is
// the request or the response of the api.
func (a *api) schemaOf(msg Message, version int16) (*schema, error) {
	t := reflect.TypeOf(msg)
	if t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("%T: message must be a pointer to a struct", msg)
	}
	for _, s := range [...]*schema{a.request(version), a.response(version)} {
		if s.typ == t.Elem() {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%T is not a registered %s message type", msg, msg.ApiKey())
}

var registry [numApis]*api

// Register installs a request/response pair. Wire packages call it from their
// init function.
//
// Both types must cover the same range of versions, a response is always
// read with the version of the request it answers.
func Register(req, res Message) {
	k := req.ApiKey()
	if k != res.ApiKey() {
		panic(fmt.Sprintf("%T/%T: api keys mismatch: %s != %s", req, res, k, res.ApiKey()))
	}
	if k < 0 || k >= numApis {
		panic(fmt.Sprintf("%T: api key out of range: %d", req, k))
	}

	reqType := reflect.TypeOf(req).Elem()
	resType := reflect.TypeOf(res).Elem()
	reqMin, reqMax := versionRangeOf(reqType)
	resMin, resMax := versionRangeOf(resType)

	if reqMin != resMin || reqMax != resMax {
		panic(fmt.Sprintf("%T/%T: version ranges mismatch: v%d-v%d != v%d-v%d",
			req, res, reqMin, reqMax, resMin, resMax))
	}

	a := &api{minVersion: reqMin}
	for v := reqMin; v <= reqMax; v++ {
		a.requests = append(a.requests, compileSchema(reqType, v))
		a.responses = append(a.responses, compileSchema(resType, v))
	}
	registry[k] = a
}
