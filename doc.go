/*
go-alpr provides Automatic License Plate Recognition (ALPR) over video
frames.  Vehicles found by a detector backend are tracked across frames by a
SORT tracker, license plates are located and read for each confirmed
vehicle, and the best reading per vehicle identity is kept in a plate cache.

Detection and OCR backends are pluggable, see the backend subdirectory for
RKNN NPU and ONNX Runtime implementations, and the example subdirectory for
complete programs.
*/
package alpr
