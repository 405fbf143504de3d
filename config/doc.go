// Package config resolves the properties that configure drivers and units.
//
// Properties are flat name/value sets located by a key and a type. A driver
// is initialized from one locator and finds its units through the indexed
// CLASS_n, KEY_n and TYPE_n properties:
//
//	orders:
//	  driver:
//	    ASYNC_FLAG: false
//	    CLASS_0: forward
//	    KEY_0: orders.root
//	    TYPE_0: unit
//	orders.root:
//	  unit:
//	    NAME: ROOT
//	    NEXT_PROCESSOR_NAME: COMM_SERVER
//
// [MapSource] keeps properties in memory, [LoadFile] and [ParseYAML] read
// them from YAML and [Chain] layers sources. [Loader] overlays environment
// variables on parsed settings structs.
package config
